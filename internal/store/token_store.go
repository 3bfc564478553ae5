package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/salescrm/crm-portal/internal/auth"
	"github.com/salescrm/crm-portal/internal/domain"
)

const persistTimeout = 5 * time.Second

// Persister is durable client storage for the session record.
// Load returns (nil, nil) when no record exists under key.
type Persister interface {
	Load(ctx context.Context, key string) (*domain.PersistedSession, error)
	Save(ctx context.Context, key string, record domain.PersistedSession) error
}

// TokenStore holds the process-wide session. It is created once at start
// and handed explicitly to the components that read or write it.
type TokenStore struct {
	mu        sync.RWMutex
	state     domain.Session
	hydrated  bool
	inFlight  int
	persister Persister
	key       string
	logger    *zap.Logger
}

// NewTokenStore returns an empty, not yet hydrated store.
func NewTokenStore(persister Persister, key string, logger *zap.Logger) *TokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenStore{persister: persister, key: key, logger: logger}
}

// Hydrate reads the persisted record back. It runs once; later calls are no-ops.
func (s *TokenStore) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hydrated {
		return nil
	}
	defer func() { s.hydrated = true }()

	if s.persister == nil {
		return nil
	}
	record, err := s.persister.Load(ctx, s.key)
	if err != nil {
		s.logger.Warn("session hydrate failed", zap.String("key", s.key), zap.Error(err))
		return err
	}
	if record == nil {
		return nil
	}

	next := domain.Session{
		User:         record.User.Clone(),
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
	}
	normalize(&next)
	s.state = next
	s.logger.Info("session restored",
		zap.Bool("authenticated", next.IsAuthenticated),
		zap.Bool("has_tokens", next.HasTokens()))
	return nil
}

// Hydrated reports whether the persisted record has been read back.
func (s *TokenStore) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// Snapshot returns a copy of the current session.
func (s *TokenStore) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	out.User = s.state.User.Clone()
	return out
}

// AccessToken returns the current access token, or "" when absent.
func (s *TokenStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

// RefreshToken returns the current refresh token, or "" when absent.
func (s *TokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.RefreshToken
}

// SetUser sets the profile and recomputes IsAuthenticated.
func (s *TokenStore) SetUser(user *domain.User) {
	s.Apply(func(sess *domain.Session) {
		sess.User = user.Clone()
	})
}

// SetTokens overwrites both tokens. An empty value for either clears the pair.
func (s *TokenStore) SetTokens(accessToken, refreshToken string) {
	s.Apply(func(sess *domain.Session) {
		sess.AccessToken = accessToken
		sess.RefreshToken = refreshToken
		sess.AccessTokenExpiresAt = time.Time{}
	})
}

// Clear resets every field to its empty value.
func (s *TokenStore) Clear() {
	s.Apply(func(sess *domain.Session) {
		*sess = domain.Session{}
	})
}

// BeginAttempt marks a login, registration or refresh as in flight and
// clears the last error. Every call must be paired with EndAttempt.
func (s *TokenStore) BeginAttempt() {
	s.mu.Lock()
	s.inFlight++
	s.state.IsLoading = true
	s.state.Error = ""
	s.mu.Unlock()
}

// EndAttempt releases one in-flight attempt. IsLoading drops once none remain.
func (s *TokenStore) EndAttempt() {
	s.mu.Lock()
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.state.IsLoading = s.inFlight > 0
	s.mu.Unlock()
}

// SetError records the last user-facing failure. Not persisted.
func (s *TokenStore) SetError(msg string) {
	s.mu.Lock()
	s.state.Error = msg
	s.mu.Unlock()
}

// ClearError drops the last failure message.
func (s *TokenStore) ClearError() {
	s.SetError("")
}

// Apply runs fn against a copy of the session and commits the result as
// one mutation, then writes the durable subset through the persister.
func (s *TokenStore) Apply(fn func(*domain.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.User = s.state.User.Clone()
	fn(&next)
	normalize(&next)
	next.IsLoading = s.inFlight > 0
	s.state = next
	s.persistLocked()
}

func (s *TokenStore) persistLocked() {
	if s.persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.persister.Save(ctx, s.key, s.state.Persisted()); err != nil {
		s.logger.Warn("session persist failed", zap.String("key", s.key), zap.Error(err))
	}
}

// normalize enforces the session invariants after any mutation.
func normalize(sess *domain.Session) {
	if sess.AccessToken == "" || sess.RefreshToken == "" {
		sess.AccessToken = ""
		sess.RefreshToken = ""
		sess.AccessTokenExpiresAt = time.Time{}
	} else if sess.AccessTokenExpiresAt.IsZero() {
		if exp, ok := auth.InspectToken(sess.AccessToken); ok {
			sess.AccessTokenExpiresAt = exp
		}
	}
	sess.IsAuthenticated = sess.User != nil
}
