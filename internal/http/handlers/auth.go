package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, username, email, passwordHash string) (user.User, error)
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type AuthHandler struct {
	users UserStore
	jwt   TokenIssuer
	prom  *observability.Prom
}

func NewAuthHandler(users UserStore, jwt TokenIssuer, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users: users,
		jwt:   jwt,
		prom:  prom,
	}
}

type SignUpRequest struct {
	Username string `json:"username" binding:"required,min=1,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) count(op, result string) {
	if h.prom != nil {
		h.prom.AuthResults.WithLabelValues(op, result).Inc()
	}
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		h.count("signup", "rejected")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	// pre-check for a friendlier error; the unique constraint still closes
	// the race between concurrent signups
	_, err := h.users.GetByEmail(cctx, req.Email)

	if err == nil {
		h.count("signup", "rejected")
		RespondBadRequest(ctx, "email_taken", "Email is already in use.", nil)
		return
	}

	if !errors.Is(err, user.ErrNotFound) {
		h.count("signup", "error")
		RespondInternal(ctx, "Could not create user")
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.count("signup", "error")
		RespondInternal(ctx, "Could not create user")
		return
	}

	_, err = h.users.Create(cctx, req.Username, req.Email, hash)

	if err != nil {
		if errors.Is(err, user.ErrEmailExists) {
			h.count("signup", "rejected")
			RespondBadRequest(ctx, "email_taken", "Email is already in use.", nil)
			return
		}

		h.count("signup", "error")
		RespondInternal(ctx, "Could not create user")
		return
	}

	h.count("signup", "ok")

	// no token on signup: the user logs in separately
	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		h.count("login", "rejected")
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// same answer as a bad password, so callers cannot probe for accounts
			h.count("login", "rejected")
			RespondBadRequest(ctx, "invalid_credentials", "Email or password is incorrect.", nil)
			return
		}

		h.count("login", "error")
		RespondInternal(ctx, "Could not log in")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.count("login", "rejected")
		RespondBadRequest(ctx, "invalid_credentials", "Email or password is incorrect.", nil)
		return
	}

	token, err := h.jwt.Issue(foundUser.ID)

	if err != nil {
		h.count("login", "error")
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.count("login", "ok")

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
	})
}
