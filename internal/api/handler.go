package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
	"github.com/Amine0019/Data-Extraction-Portal/internal/service"

	"github.com/go-chi/chi/v5"
)

// Handler is the JSON surface consumed by the UI layer.
type Handler struct {
	connReg  *service.ConnectionRegistry
	tmplReg  *service.TemplateRegistry
	executor *service.Executor
	logRepo  core.LogRepository
	authSvc  *service.AuthService
	userRepo core.UserRepository
}

func NewHandler(connReg *service.ConnectionRegistry, tmplReg *service.TemplateRegistry, executor *service.Executor, logRepo core.LogRepository, authSvc *service.AuthService, userRepo core.UserRepository) *Handler {
	return &Handler{
		connReg:  connReg,
		tmplReg:  tmplReg,
		executor: executor,
		logRepo:  logRepo,
		authSvc:  authSvc,
		userRepo: userRepo,
	}
}

// Routes wires the full API. Login is rate limited by IP, execution by
// actor; everything past /login requires a session and the admin
// surface additionally requires the Admin role.
func (h *Handler) Routes(auth *AuthHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)

	loginLimiter := NewRateLimiter(5, 3) // brute force protection
	execLimiter := NewRateLimiter(60, 10)

	r.Get("/health", h.Health)
	r.Post("/setup", auth.Setup)
	r.With(loginLimiter.Middleware).Post("/login", auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Post("/logout", auth.Logout)

		r.Get("/connections/{id}/templates", h.TemplatesForConnection)
		r.With(execLimiter.MiddlewareByActor).Post("/templates/{id}/execute", h.ExecuteTemplate)
		r.With(execLimiter.MiddlewareByActor).Post("/templates/{id}/export", h.ExportTemplate)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Get("/connections", h.ListConnections)
			r.Post("/connections", h.CreateConnection)
			r.Get("/connections/{id}", h.GetConnection)
			r.Put("/connections/{id}", h.UpdateConnection)
			r.Delete("/connections/{id}", h.DeleteConnection)
			r.Post("/connections/{id}/test", h.TestConnection)

			r.Get("/templates", h.ListTemplates)
			r.Post("/templates", h.CreateTemplate)
			r.Get("/templates/{id}", h.GetTemplate)
			r.Put("/templates/{id}", h.UpdateTemplate)
			r.Delete("/templates/{id}", h.DeleteTemplate)

			r.Get("/logs", h.ListLogs)
			r.Post("/logs/purge", h.PurgeLogs)

			r.Get("/users", h.ListUsers)
			r.Post("/users", h.CreateUser)
			r.Delete("/users/{id}", h.DeleteUser)
			r.Post("/users/{username}/password", h.SetUserPassword)
		})
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// --- Connections ---

func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.connReg.List()
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

func (h *Handler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var in service.ConnectionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	conn, err := h.connReg.Create(in)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

// GetConnection returns the descriptor with its decrypted password,
// for the admin edit form.
func (h *Handler) GetConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	conn, password, err := h.connReg.Reveal(id)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       conn.ID,
		"name":     conn.Name,
		"engine":   conn.Engine,
		"host":     conn.Host,
		"port":     conn.Port,
		"database": conn.Database,
		"username": conn.Username,
		"password": password,
	})
}

func (h *Handler) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in service.ConnectionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	conn, err := h.connReg.Update(id, in)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (h *Handler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.connReg.Delete(id); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.executor.TestConnection(r.Context(), id); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reachable": true})
}

// --- Templates ---

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.tmplReg.List()
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// TemplatesForConnection lists the templates on one connection that
// the calling actor may execute, with their declared parameters so the
// UI can build the input form.
func (h *Handler) TemplatesForConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, _ := ActorFromContext(r.Context())
	templates, err := h.tmplReg.ListForConnection(id, actor.Role)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	type templateView struct {
		ID     int64            `json:"id"`
		Name   string           `json:"name"`
		Params []core.ParamSpec `json:"params"`
	}
	views := make([]templateView, 0, len(templates))
	for _, t := range templates {
		views = append(views, templateView{ID: t.ID, Name: t.Name, Params: core.DeclaredParams(t.Parameters)})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var d service.TemplateDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.tmplReg.Create(d)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.tmplReg.Get(id)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var d service.TemplateDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.tmplReg.Update(id, d)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.tmplReg.Delete(id); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// --- Execution ---

type executeRequest struct {
	Params map[string]any `json:"params"`
}

func (h *Handler) ExecuteTemplate(w http.ResponseWriter, r *http.Request) {
	table, ok := h.runTemplate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// ExportTemplate executes like ExecuteTemplate but streams the result
// as a CSV attachment.
func (h *Handler) ExportTemplate(w http.ResponseWriter, r *http.Request) {
	table, ok := h.runTemplate(w, r)
	if !ok {
		return
	}
	writeCSV(w, table, "result.csv")
}

func (h *Handler) runTemplate(w http.ResponseWriter, r *http.Request) (*core.Table, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}

	var req executeRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	actor, _ := ActorFromContext(r.Context())
	table, err := h.executor.ExecuteByID(r.Context(), id, req.Params, actor)
	if err != nil {
		writeMappedError(w, err)
		return nil, false
	}
	return table, true
}

// --- Logs ---

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	filter := core.LogFilter{
		ActorContains: r.URL.Query().Get("actor"),
		Status:        core.LogStatus(r.URL.Query().Get("status")),
	}

	entries, err := h.logRepo.Query(filter, limit)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) PurgeLogs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OlderThanDays int `json:"older_than_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OlderThanDays <= 0 {
		writeError(w, http.StatusBadRequest, "older_than_days must be a positive integer")
		return
	}

	deleted, err := h.logRepo.Purge(time.Duration(req.OlderThanDays) * 24 * time.Hour)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// --- Users ---

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.GetAll()
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string    `json:"username"`
		Password string    `json:"password"`
		Role     core.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.authSvc.CreateUser(req.Username, req.Password, req.Role)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, _ := ActorFromContext(r.Context())
	acting, err := h.userRepo.GetByUsername(actor.Username)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if err := h.authSvc.DeleteUser(id, acting.ID); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) SetUserPassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.authSvc.SetPassword(username, req.Password); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": username})
}

// --- helpers ---

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeMappedError converts the core failure taxonomy to HTTP
// statuses. Every failure surfaces a one-line message; driver text may
// pass through verbatim but decrypted credentials never appear in any
// of these error strings.
func writeMappedError(w http.ResponseWriter, err error) {
	var (
		validation *core.ValidationError
		paramErr   *core.ParameterError
		authz      *core.AuthorizationError
		notFound   *core.ConnectionNotFound
		credential *core.CredentialError
		decryption *core.DecryptionError
		connFailed *core.ConnectionFailed
		driverErr  *core.DriverError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &paramErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &authz):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &notFound), errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &credential), errors.As(err, &decryption):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &connFailed), errors.As(err, &driverErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
