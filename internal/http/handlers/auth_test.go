package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/handlers"
	"github.com/geocoder89/taskhub/internal/repo/memory"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/gin-gonic/gin"
)

// Keep gin quiet during tests

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func newAuthHandler() (*handlers.AuthHandler, *memory.UsersRepo, *auth.Manager) {
	users := memory.NewUsersRepo()
	jwt := auth.NewManager("test-secret", time.Hour)

	return handlers.NewAuthHandler(users, jwt, nil), users, jwt
}

func TestSignUpHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid signup",
			body:       `{"username":"alice","email":"a@x.com","password":"password123"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "malformed email",
			body:       `{"username":"alice","email":"not-an-email","password":"password123"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "missing password",
			body:       `{"username":"alice","email":"a@x.com"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			// any non-empty password is acceptable
			name:       "short password",
			body:       `{"username":"alice","email":"a@x.com","password":"pw1"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "empty password",
			body:       `{"username":"alice","email":"a@x.com","password":""}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "bad json",
			body:       `{"username":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _, _ := newAuthHandler()
			r := setupRouter(http.MethodPost, "/signup", h.SignUp)

			w := doJSON(t, r, http.MethodPost, "/signup", tc.body, "")

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tc.wantStatus, w.Body.String())
			}

			if tc.wantCode != "" && !strings.Contains(w.Body.String(), tc.wantCode) {
				t.Fatalf("body %q does not contain code %q", w.Body.String(), tc.wantCode)
			}

			// no token on successful signup
			if tc.wantStatus == http.StatusCreated && strings.Contains(w.Body.String(), "token") {
				t.Fatalf("signup must not return a token, body=%s", w.Body.String())
			}
		})
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	h, _, _ := newAuthHandler()
	r := setupRouter(http.MethodPost, "/signup", h.SignUp)

	body := `{"username":"alice","email":"a@x.com","password":"password123"}`

	w := doJSON(t, r, http.MethodPost, "/signup", body, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("first signup status = %d, want 201, body=%s", w.Code, w.Body.String())
	}

	// same email again, different username

	w = doJSON(t, r, http.MethodPost, "/signup", `{"username":"imposter","email":"a@x.com","password":"password456"}`, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup status = %d, want 400, body=%s", w.Code, w.Body.String())
	}

	if !strings.Contains(w.Body.String(), "email_taken") {
		t.Fatalf("duplicate signup body %q missing email_taken", w.Body.String())
	}
}

func TestLoginHandler(t *testing.T) {
	h, users, jwt := newAuthHandler()

	hash, err := security.HashPassword("password123")

	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	created, err := users.Create(context.Background(), "alice", "a@x.com", hash)

	if err != nil {
		t.Fatalf("seeding user failed: %v", err)
	}

	r := setupRouter(http.MethodPost, "/login", h.Login)

	t.Run("success returns verifiable token", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/login", `{"email":"a@x.com","password":"password123"}`, "")

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
		}

		var resp struct {
			Token string `json:"token"`
		}

		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}

		uid, err := jwt.Verify(resp.Token)

		if err != nil {
			t.Fatalf("returned token failed verification: %v", err)
		}

		if uid != created.ID {
			t.Fatalf("token verifies to uid %q, want %q", uid, created.ID)
		}
	})

	// unknown email and wrong password must be indistinguishable

	t.Run("wrong password", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/login", `{"email":"a@x.com","password":"wrongwrong"}`, "")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400, body=%s", w.Code, w.Body.String())
		}

		if !strings.Contains(w.Body.String(), "invalid_credentials") {
			t.Fatalf("body %q missing invalid_credentials", w.Body.String())
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/login", `{"email":"nobody@x.com","password":"password123"}`, "")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400, body=%s", w.Code, w.Body.String())
		}

		if !strings.Contains(w.Body.String(), "invalid_credentials") {
			t.Fatalf("body %q missing invalid_credentials", w.Body.String())
		}
	})
}

type fakeUsersStore struct {
	getByEmail func(ctx context.Context, email string) (user.User, error)
	create     func(ctx context.Context, username, email, passwordHash string) (user.User, error)
}

func (f *fakeUsersStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return f.getByEmail(ctx, email)
}

func (f *fakeUsersStore) Create(ctx context.Context, username, email, passwordHash string) (user.User, error) {
	return f.create(ctx, username, email, passwordHash)
}

// A lookup failure is a server fault, not a credentials problem.

func TestLoginStorageFailure(t *testing.T) {
	users := &fakeUsersStore{
		getByEmail: func(ctx context.Context, email string) (user.User, error) {
			return user.User{}, errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
		},
	}

	h := handlers.NewAuthHandler(users, auth.NewManager("test-secret", time.Hour), nil)
	r := setupRouter(http.MethodPost, "/login", h.Login)

	w := doJSON(t, r, http.MethodPost, "/login", `{"email":"a@x.com","password":"password123"}`, "")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500, body=%s", w.Code, w.Body.String())
	}

	if strings.Contains(w.Body.String(), "invalid_credentials") {
		t.Fatalf("storage failure must not look like bad credentials, body=%s", w.Body.String())
	}
}
