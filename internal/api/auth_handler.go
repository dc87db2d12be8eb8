package api

import (
	"encoding/json"
	"net/http"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
	"github.com/Amine0019/Data-Extraction-Portal/internal/service"
)

const sessionName = "portal-session"

type AuthHandler struct {
	authSvc *service.AuthService
	store   *SQLiteSessionStore
}

func NewAuthHandler(authSvc *service.AuthService, store *SQLiteSessionStore) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, store: store}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authSvc.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	session, _ := h.store.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	session.Values["role"] = string(user.Role)
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"username": user.Username,
		"role":     user.Role,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.store.Get(r, sessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

// Setup creates the first admin account while no users exist.
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.authSvc.SetupAdmin(req.Username, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"created": req.Username})
}

// RequireAuth resolves the session and places the actor in the request
// context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.store.Get(r, sessionName)
		if err != nil || session.IsNew {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}

		username, _ := session.Values["username"].(string)
		role, _ := session.Values["role"].(string)
		if username == "" || !core.ValidRole(core.Role(role)) {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}

		actor := core.Actor{Username: username, Role: core.Role(role)}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

// RequireAdmin gates the administrative surface. Must run after
// RequireAuth.
func (h *AuthHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || actor.Role != core.RoleAdmin {
			writeError(w, http.StatusForbidden, "administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
