package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/config"
	apphttp "github.com/geocoder89/taskhub/internal/http"
	"github.com/geocoder89/taskhub/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Config {
	return config.Config{
		Env:                 "test",
		Port:                0,
		JWTSecret:           "test-secret-key",
		JWTAccessTTLMinutes: 60,
		AllowedOrigins:      []string{"http://localhost:3000"},
		MaxBodyBytes:        1 << 20,
	}
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	cfg := testConfig()

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return apphttp.NewRouter(apphttp.Deps{
		Cfg:   cfg,
		Log:   logger,
		Users: memory.NewUsersRepo(),
		Tasks: memory.NewTasksRepo(),
		JWT:   auth.NewManager(cfg.JWTSecret, cfg.AccessTTL()),
		Ping:  func() error { return nil },
	})
}

func doRequest(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func signupAndLogin(t *testing.T, router http.Handler, username, email, password string) string {
	t.Helper()

	signupBody := `{"username":"` + username + `","email":"` + email + `","password":"` + password + `"}`

	w := doRequest(router, http.MethodPost, "/signup", signupBody, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("signup got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	loginBody := `{"email":"` + email + `","password":"` + password + `"}`

	w = doRequest(router, http.MethodPost, "/login", loginBody, "")

	if w.Code != http.StatusOK {
		t.Fatalf("login got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}

	mustReadJSON(t, w, &resp)

	if strings.TrimSpace(resp.Token) == "" {
		t.Fatalf("login expected token, got empty body=%s", w.Body.String())
	}

	return resp.Token
}

func TestSignupLoginCreateList(t *testing.T) {
	router := setupTestRouter(t)

	token := signupAndLogin(t, router, "alice", "a@x.com", "pw1")

	due := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)

	w := doRequest(router, http.MethodPost, "/tasks",
		`{"name":"write report","description":"q3 numbers","dueDate":"`+due+`"}`, token)

	if w.Code != http.StatusCreated {
		t.Fatalf("create task got status %d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Priority string `json:"priority"`
	}

	mustReadJSON(t, w, &created)

	if created.Status != "Pending" || created.Priority != "Low" {
		t.Fatalf("defaults not applied: status=%q priority=%q", created.Status, created.Priority)
	}

	w = doRequest(router, http.MethodGet, "/tasks", "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("list tasks got status %d, body=%s", w.Code, w.Body.String())
	}

	var list []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	mustReadJSON(t, w, &list)

	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list = %+v, want the created task", list)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	router := setupTestRouter(t)

	signupAndLogin(t, router, "alice", "a@x.com", "pw1")

	w := doRequest(router, http.MethodPost, "/login", `{"email":"a@x.com","password":"wrong-password"}`, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", w.Code, w.Body.String())
	}

	if !strings.Contains(w.Body.String(), "invalid_credentials") {
		t.Fatalf("body %q missing invalid_credentials", w.Body.String())
	}
}

func TestCrossUserTaskAccess(t *testing.T) {
	router := setupTestRouter(t)

	tokenA := signupAndLogin(t, router, "alice", "a@x.com", "pw1")
	tokenB := signupAndLogin(t, router, "bob", "b@x.com", "pw2")

	due := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)

	w := doRequest(router, http.MethodPost, "/tasks",
		`{"name":"private","description":"alice only","dueDate":"`+due+`"}`, tokenA)

	if w.Code != http.StatusCreated {
		t.Fatalf("create task got status %d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		ID string `json:"id"`
	}

	mustReadJSON(t, w, &created)

	// B updates A's task: indistinguishable from a missing task

	w = doRequest(router, http.MethodPatch, "/tasks/"+created.ID, `{"name":"hijacked"}`, tokenB)

	if w.Code != http.StatusNotFound {
		t.Fatalf("cross-user update status = %d, want 404, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodDelete, "/tasks/"+created.ID, "", tokenB)

	if w.Code != http.StatusNotFound {
		t.Fatalf("cross-user delete status = %d, want 404, body=%s", w.Code, w.Body.String())
	}

	// A still owns it

	w = doRequest(router, http.MethodGet, "/tasks", "", tokenA)

	var list []struct {
		Name string `json:"name"`
	}

	mustReadJSON(t, w, &list)

	if len(list) != 1 || list[0].Name != "private" {
		t.Fatalf("owner list = %+v, want the original task", list)
	}
}

func TestDeleteIdempotence(t *testing.T) {
	router := setupTestRouter(t)

	token := signupAndLogin(t, router, "alice", "a@x.com", "pw1")

	due := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)

	w := doRequest(router, http.MethodPost, "/tasks",
		`{"name":"ephemeral","description":"d","dueDate":"`+due+`"}`, token)

	var created struct {
		ID string `json:"id"`
	}

	mustReadJSON(t, w, &created)

	w = doRequest(router, http.MethodDelete, "/tasks/"+created.ID, "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("first delete status = %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodDelete, "/tasks/"+created.ID, "", token)

	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404, body=%s", w.Code, w.Body.String())
	}
}

func TestCreateTaskValidationPersistsNothing(t *testing.T) {
	router := setupTestRouter(t)

	token := signupAndLogin(t, router, "alice", "a@x.com", "pw1")

	due := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)

	// missing name

	w := doRequest(router, http.MethodPost, "/tasks",
		`{"description":"d","dueDate":"`+due+`"}`, token)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("create status = %d, want 400, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/tasks", "", token)

	var list []struct{}

	mustReadJSON(t, w, &list)

	if len(list) != 0 {
		t.Fatalf("rejected create persisted a task: %d tasks", len(list))
	}
}

func TestTaskRoutesRequireToken(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/tasks", "", "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401, body=%s", w.Code, w.Body.String())
	}

	if !strings.Contains(w.Body.String(), "missing_token") {
		t.Fatalf("body %q missing missing_token", w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/tasks", "", "not-a-real-token")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401, body=%s", w.Code, w.Body.String())
	}

	if !strings.Contains(w.Body.String(), "invalid_token") {
		t.Fatalf("body %q missing invalid_token", w.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/healthz", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/readyz", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("readyz status = %d", w.Code)
	}
}
