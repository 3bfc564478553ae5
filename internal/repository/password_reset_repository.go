package repository

import (
	"context"
	"sync"
	"time"
)

// PasswordResetToken represents a requested password reset.
type PasswordResetToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// PasswordResetRepository records reset requests.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *PasswordResetToken) error
	ListForUser(ctx context.Context, userID string) ([]PasswordResetToken, error)
}

type passwordResetRepository struct {
	mu     sync.Mutex
	tokens []PasswordResetToken
}

// NewPasswordResetRepository constructs repository.
func NewPasswordResetRepository() PasswordResetRepository {
	return &passwordResetRepository{}
}

func (r *passwordResetRepository) Create(_ context.Context, token *PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.CreatedAt = time.Now().UTC()
	r.tokens = append(r.tokens, *token)
	return nil
}

func (r *passwordResetRepository) ListForUser(_ context.Context, userID string) ([]PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PasswordResetToken
	for _, t := range r.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}
