package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/google/uuid"
)

type UsersRepo struct {
	mu      sync.RWMutex
	byEmail map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byEmail: make(map[string]user.User),
	}
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	u, ok := r.byEmail[email]
	r.mu.RUnlock()

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

// Create mirrors the storage-level uniqueness check: the insert and the
// duplicate check happen under the same lock.
func (r *UsersRepo) Create(ctx context.Context, username, email, passwordHash string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return user.User{}, user.ErrEmailExists
	}

	r.byEmail[email] = u

	return u, nil
}
