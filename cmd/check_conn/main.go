// check_conn is an operator tool: it looks up a stored connection by
// name, decrypts its credential and dials the target engine with the
// same timeout the execution engine uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Amine0019/Data-Extraction-Portal/internal/config"
	"github.com/Amine0019/Data-Extraction-Portal/internal/data"
	"github.com/Amine0019/Data-Extraction-Portal/internal/service"
)

func main() {
	name := flag.String("name", "", "Connection name to check")
	flag.Parse()

	if *name == "" {
		fmt.Println("Usage: check_conn -name <connection name>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := data.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer db.Close()

	vault, err := service.NewVault(cfg.VaultKey)
	if err != nil {
		log.Fatalf("Failed to init vault: %v", err)
	}

	connRepo := data.NewConnectionRepo(db)
	templateRepo := data.NewTemplateRepo(db)
	logRepo := data.NewLogRepo(db)

	conn, err := connRepo.GetByName(*name)
	if err != nil {
		log.Fatalf("Connection %q not found: %v", *name, err)
	}

	executor := service.NewExecutor(connRepo, templateRepo, logRepo, vault)
	if err := executor.TestConnection(context.Background(), conn.ID); err != nil {
		fmt.Printf("Connection %q (%s:%d) unreachable: %v\n", conn.Name, conn.Host, conn.Port, err)
		os.Exit(1)
	}
	fmt.Printf("Connection %q (%s:%d) is reachable.\n", conn.Name, conn.Host, conn.Port)
}
