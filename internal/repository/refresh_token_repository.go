package repository

import (
	"context"
	"sync"
	"time"
)

// RefreshToken is an issued, single-use refresh credential.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Active reports whether the token can still be exchanged at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// RefreshTokenRepository manages refresh token persistence.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeForUser(ctx context.Context, userID string) (int, error)
}

type refreshTokenRepository struct {
	mu      sync.Mutex
	byToken map[string]*RefreshToken
}

// NewRefreshTokenRepository constructs an in-memory repository.
func NewRefreshTokenRepository() RefreshTokenRepository {
	return &refreshTokenRepository{byToken: make(map[string]*RefreshToken)}
}

func (r *refreshTokenRepository) Create(_ context.Context, token *RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.CreatedAt = time.Now().UTC()
	stored := *token
	r.byToken[token.Token] = &stored
	return nil
}

func (r *refreshTokenRepository) GetByToken(_ context.Context, tokenStr string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.byToken[tokenStr]
	if !ok {
		return nil, ErrNotFound
	}
	out := *token
	return &out, nil
}

func (r *refreshTokenRepository) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.byToken {
		if token.ID == id {
			if token.RevokedAt == nil {
				now := time.Now().UTC()
				token.RevokedAt = &now
			}
			return nil
		}
	}
	return ErrNotFound
}

func (r *refreshTokenRepository) RevokeForUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	revoked := 0
	for _, token := range r.byToken {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
			revoked++
		}
	}
	return revoked, nil
}
