package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
	"github.com/Amine0019/Data-Extraction-Portal/internal/data"
	"github.com/Amine0019/Data-Extraction-Portal/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

type portalFixture struct {
	server  *httptest.Server
	authSvc *service.AuthService
}

func newPortalFixture(t *testing.T) *portalFixture {
	t.Helper()

	db, err := data.InitDB(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	vault, err := service.NewVault(testKey)
	require.NoError(t, err)

	connRepo := data.NewConnectionRepo(db)
	templateRepo := data.NewTemplateRepo(db)
	logRepo := data.NewLogRepo(db)
	userRepo := data.NewUserRepo(db)
	sessionRepo := data.NewSessionRepo(db)

	authSvc := service.NewAuthService(userRepo)
	connReg := service.NewConnectionRegistry(connRepo, templateRepo, vault)
	tmplReg := service.NewTemplateRegistry(templateRepo, connRepo)
	executor := service.NewExecutor(connRepo, templateRepo, logRepo, vault)

	store := NewSQLiteSessionStore(sessionRepo, []byte(testKey), time.Hour)
	authHandler := NewAuthHandler(authSvc, store)
	handler := NewHandler(connReg, tmplReg, executor, logRepo, authSvc, userRepo)

	server := httptest.NewServer(handler.Routes(authHandler))
	t.Cleanup(server.Close)

	return &portalFixture{server: server, authSvc: authSvc}
}

// client returns an HTTP client with its own cookie jar, logged in as
// the given user when credentials are provided.
func (f *portalFixture) client(t *testing.T, username, password string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	if username != "" {
		resp := f.do(t, client, http.MethodPost, "/login", map[string]any{
			"username": username, "password": password,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	return client
}

func (f *portalFixture) do(t *testing.T, client *http.Client, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *portalFixture) seedUsers(t *testing.T) {
	t.Helper()
	require.NoError(t, f.authSvc.SetupAdmin("root", "admin-pass-123"))
	_, err := f.authSvc.CreateUser("alice", "analyst-pass", core.RoleAnalyst)
	require.NoError(t, err)
}

func TestHealthIsPublic(t *testing.T) {
	f := newPortalFixture(t)
	resp, err := http.Get(f.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoutesRequireSession(t *testing.T) {
	f := newPortalFixture(t)
	client := &http.Client{}

	for _, path := range []string{"/connections", "/templates", "/logs", "/users"} {
		resp := f.do(t, client, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newPortalFixture(t)
	f.seedUsers(t)

	client := &http.Client{}
	resp := f.do(t, client, http.MethodPost, "/login", map[string]any{
		"username": "root", "password": "wrong",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminSurfaceForbiddenForAnalyst(t *testing.T) {
	f := newPortalFixture(t)
	f.seedUsers(t)

	client := f.client(t, "alice", "analyst-pass")
	resp := f.do(t, client, http.MethodGet, "/connections", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestConnectionAndTemplateLifecycle(t *testing.T) {
	f := newPortalFixture(t)
	f.seedUsers(t)
	admin := f.client(t, "root", "admin-pass-123")

	// Create a connection.
	resp := f.do(t, admin, http.MethodPost, "/connections", map[string]any{
		"name": "warehouse", "engine": "sqlserver", "host": "localhost",
		"port": 1433, "database": "master", "username": "sa", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	conn := decodeBody[map[string]any](t, resp)
	connID := int64(conn["id"].(float64))

	// The edit form gets the decrypted password back.
	resp = f.do(t, admin, http.MethodGet, fmt.Sprintf("/connections/%d", connID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "pw", detail["password"])
	assert.Equal(t, float64(1433), detail["port"])

	// An unsafe template is rejected.
	resp = f.do(t, admin, http.MethodPost, "/templates", map[string]any{
		"name": "wipe", "sql_text": "DROP TABLE users;",
		"roles": []string{"Analyst"}, "connection_id": connID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// A safe one is accepted.
	resp = f.do(t, admin, http.MethodPost, "/templates", map[string]any{
		"name": "user by id", "sql_text": "SELECT * FROM users WHERE id = :id",
		"parameters": "id:int", "roles": []string{"Analyst"}, "connection_id": connID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tmpl := decodeBody[map[string]any](t, resp)
	tmplID := int64(tmpl["id"].(float64))

	// Deleting the connection is blocked while referenced.
	resp = f.do(t, admin, http.MethodDelete, fmt.Sprintf("/connections/%d", connID), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// The analyst sees the template with its parameter specs.
	analyst := f.client(t, "alice", "analyst-pass")
	resp = f.do(t, analyst, http.MethodGet, fmt.Sprintf("/connections/%d/templates", connID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	views := decodeBody[[]map[string]any](t, resp)
	require.Len(t, views, 1)
	assert.Equal(t, float64(tmplID), views[0]["id"])

	// Template gone, then the connection can go too.
	resp = f.do(t, admin, http.MethodDelete, fmt.Sprintf("/templates/%d", tmplID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = f.do(t, admin, http.MethodDelete, fmt.Sprintf("/connections/%d", connID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestLogoutEndsSession(t *testing.T) {
	f := newPortalFixture(t)
	f.seedUsers(t)
	client := f.client(t, "root", "admin-pass-123")

	resp := f.do(t, client, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, client, http.MethodGet, "/connections", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSetupOnlyOnce(t *testing.T) {
	f := newPortalFixture(t)
	client := &http.Client{}

	resp := f.do(t, client, http.MethodPost, "/setup", map[string]any{
		"username": "root", "password": "admin-pass-123",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, client, http.MethodPost, "/setup", map[string]any{
		"username": "mallory", "password": "evil-pass-123",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
