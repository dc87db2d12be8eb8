package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Amine0019/Data-Extraction-Portal/internal/api"
	"github.com/Amine0019/Data-Extraction-Portal/internal/config"
	"github.com/Amine0019/Data-Extraction-Portal/internal/data"
	"github.com/Amine0019/Data-Extraction-Portal/internal/logger"
	"github.com/Amine0019/Data-Extraction-Portal/internal/service"

	"golang.org/x/term"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "reset-password":
			handleResetPassword(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		default:
			fmt.Printf("Unknown command: %s\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	startServer()
}

func printHelp() {
	fmt.Println("Data Extraction Portal")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  portal                            Start the server")
	fmt.Println("  portal reset-password -u <user>   Reset a user's password (interactive)")
	fmt.Println("  portal help                       Show this help")
}

func handleResetPassword(args []string) {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	username := fs.String("u", "", "Username to reset")
	fs.Parse(args)

	if *username == "" {
		fmt.Println("Usage: portal reset-password -u <username>")
		os.Exit(1)
	}

	fmt.Print("New password: ")
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		os.Exit(1)
	}
	password := string(passBytes)

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		os.Exit(1)
	}

	if password != string(confirmBytes) {
		fmt.Println("Passwords do not match.")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := data.InitDB(cfg.DBPath)
	if err != nil {
		fmt.Printf("Failed to init database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	authSvc := service.NewAuthService(data.NewUserRepo(db))
	if err := authSvc.SetPassword(*username, password); err != nil {
		fmt.Printf("Failed to reset password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Password for user '%s' has been reset successfully.\n", *username)
}

func startServer() {
	// The vault key is a hard precondition: without it every stored
	// credential is unreachable, so a bad key stops startup here.
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\nCheck .env or the PORTAL_KEY environment variable.\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogDir); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info.Println("Starting Data Extraction Portal...")

	db, err := data.InitDB(cfg.DBPath)
	if err != nil {
		logger.Error.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	vault, err := service.NewVault(cfg.VaultKey)
	if err != nil {
		logger.Error.Fatalf("Failed to init credential vault: %v", err)
	}

	connRepo := data.NewConnectionRepo(db)
	templateRepo := data.NewTemplateRepo(db)
	logRepo := data.NewLogRepo(db)
	userRepo := data.NewUserRepo(db)
	sessionRepo := data.NewSessionRepo(db)

	authSvc := service.NewAuthService(userRepo)
	connReg := service.NewConnectionRegistry(connRepo, templateRepo, vault)
	tmplReg := service.NewTemplateRegistry(templateRepo, connRepo)
	executor := service.NewExecutor(connRepo, templateRepo, logRepo, vault)

	if err := sessionRepo.DeleteExpired(); err != nil {
		logger.Error.Printf("Failed to clear expired sessions: %v", err)
	}
	if cfg.LogRetentionDays > 0 {
		retention := time.Duration(cfg.LogRetentionDays) * 24 * time.Hour
		if n, err := logRepo.Purge(retention); err != nil {
			logger.Error.Printf("Log retention purge failed: %v", err)
		} else if n > 0 {
			logger.Info.Printf("Purged %d execution log entries older than %d days", n, cfg.LogRetentionDays)
		}
	}

	sessionTTL := time.Duration(cfg.SessionTTLHours) * time.Hour
	store := api.NewSQLiteSessionStore(sessionRepo, []byte(cfg.VaultKey), sessionTTL)
	authHandler := api.NewAuthHandler(authSvc, store)
	handler := api.NewHandler(connReg, tmplReg, executor, logRepo, authSvc, userRepo)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler.Routes(authHandler),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info.Printf("Server listening on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error.Fatalf("Server startup failed: %v", err)
		}
	}()

	<-stop
	logger.Info.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error.Printf("Server shutdown error: %v", err)
	}
	logger.Info.Println("Server stopped")
}
