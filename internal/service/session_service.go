package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/salescrm/crm-portal/internal/auth"
	"github.com/salescrm/crm-portal/internal/domain"
	"github.com/salescrm/crm-portal/internal/events"
	"github.com/salescrm/crm-portal/internal/gateway"
	"github.com/salescrm/crm-portal/internal/store"
	apperrors "github.com/salescrm/crm-portal/pkg/util/errorutil"
)

const (
	msgLoginFailed        = "Login failed"
	msgRegistrationFailed = "Registration failed"
	msgRefreshFailed      = "Session expired, please sign in again"
)

const refreshKey = "refresh"

// ErrSessionChanged is returned by a refresh whose session was replaced or
// cleared while the exchange was in flight.
var ErrSessionChanged = errors.New("session changed during refresh")

// AuthClient is the subset of the CRM auth API the session needs.
type AuthClient interface {
	Login(ctx context.Context, creds domain.LoginCredentials) (*domain.AuthPayload, error)
	Register(ctx context.Context, input domain.RegisterInput) (*domain.AuthPayload, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthTokens, error)
	Me(ctx context.Context) (*domain.User, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
}

// SessionService is the only writer of the token store. It drives login,
// registration, logout and token refresh.
type SessionService struct {
	store      *store.TokenStore
	api        AuthClient
	dispatcher events.Dispatcher
	logger     *zap.Logger
	refreshes  singleflight.Group
}

// SessionDependencies bundles collaborators for the session service.
type SessionDependencies struct {
	Store      *store.TokenStore
	API        AuthClient
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

var _ gateway.Refresher = (*SessionService)(nil)

// NewSessionService builds the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(logger)
	}
	return &SessionService{
		store:      deps.Store,
		api:        deps.API,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Snapshot returns the current session state.
func (s *SessionService) Snapshot() domain.Session {
	return s.store.Snapshot()
}

// Login authenticates with email and password. On failure the session is
// left as it was, Error carries the message and the error is returned.
func (s *SessionService) Login(ctx context.Context, email, password string, rememberMe bool) error {
	s.store.BeginAttempt()
	defer s.store.EndAttempt()

	payload, err := s.api.Login(ctx, domain.LoginCredentials{Email: email, Password: password, RememberMe: rememberMe})
	if err != nil {
		s.store.SetError(apperrors.UserMessage(err, msgLoginFailed))
		s.logger.Info("login failed", zap.String("email", email), zap.Error(err))
		return err
	}

	s.establish(payload)
	s.publish(ctx, events.EventLoggedIn, payload.User, nil)
	return nil
}

// Register creates an account and signs it in, with the same failure
// contract as Login.
func (s *SessionService) Register(ctx context.Context, input domain.RegisterInput) error {
	s.store.BeginAttempt()
	defer s.store.EndAttempt()

	payload, err := s.api.Register(ctx, input)
	if err != nil {
		s.store.SetError(apperrors.UserMessage(err, msgRegistrationFailed))
		s.logger.Info("registration failed", zap.String("email", input.Email), zap.Error(err))
		return err
	}

	s.establish(payload)
	s.publish(ctx, events.EventRegistered, payload.User, nil)
	return nil
}

func (s *SessionService) establish(payload *domain.AuthPayload) {
	expiresAt := tokenExpiry(payload.Tokens)
	s.store.Apply(func(sess *domain.Session) {
		sess.User = payload.User
		sess.AccessToken = payload.Tokens.AccessToken
		sess.RefreshToken = payload.Tokens.RefreshToken
		sess.AccessTokenExpiresAt = expiresAt
	})
}

// Logout notifies the server and clears the store whatever the outcome.
func (s *SessionService) Logout(ctx context.Context) {
	user := s.store.Snapshot().User

	acknowledged := true
	if err := s.api.Logout(ctx); err != nil {
		acknowledged = false
		s.logger.Warn("logout request failed", zap.Error(err))
	}

	s.store.Clear()
	s.publish(ctx, events.EventLoggedOut, user, events.LoggedOutPayload{ServerAcknowledged: acknowledged})
}

// ForceLogout clears the session without contacting the server. The
// gateway calls it when a 401 cannot be recovered. An already empty
// session is left alone so the last error survives.
func (s *SessionService) ForceLogout(reason string) {
	snap := s.store.Snapshot()
	if snap.User == nil && !snap.HasTokens() {
		return
	}
	user := snap.User
	s.store.Clear()
	s.logger.Info("session cleared", zap.String("reason", reason))
	s.publish(context.Background(), events.EventSessionExpired, user, events.SessionExpiredPayload{Reason: reason})
}

// expire clears the session only while it still holds refreshToken. It
// reports whether anything was cleared.
func (s *SessionService) expire(refreshToken, reason string) bool {
	var user *domain.User
	cleared := false
	s.store.Apply(func(sess *domain.Session) {
		if sess.RefreshToken != refreshToken {
			return
		}
		user = sess.User
		*sess = domain.Session{}
		cleared = true
	})
	if cleared {
		s.logger.Info("session cleared", zap.String("reason", reason))
		s.publish(context.Background(), events.EventSessionExpired, user, events.SessionExpiredPayload{Reason: reason})
	}
	return cleared
}

// RefreshAccessToken exchanges the refresh token for a new pair. Concurrent
// callers share one exchange and observe its single outcome. A failure
// clears the session only if it is still the one the exchange started from.
func (s *SessionService) RefreshAccessToken(ctx context.Context) (bool, error) {
	if s.store.RefreshToken() == "" {
		return false, gateway.ErrNoRefreshToken
	}

	// The exchange outlives any one caller: a caller giving up must not
	// fail the refresh for everyone else sharing it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.refreshes.Do(refreshKey, func() (interface{}, error) {
		return s.refresh(shared)
	})
	ok, _ := v.(bool)
	return ok, err
}

func (s *SessionService) refresh(ctx context.Context) (bool, error) {
	current := s.store.RefreshToken()
	if current == "" {
		return false, gateway.ErrNoRefreshToken
	}

	s.store.BeginAttempt()
	defer s.store.EndAttempt()

	tokens, err := s.api.Refresh(ctx, current)
	if err != nil {
		if !s.expire(current, "refresh failed") {
			s.logger.Info("ignoring refresh failure for a replaced session", zap.Error(err))
			return false, ErrSessionChanged
		}
		s.logger.Warn("token refresh failed", zap.Error(err))
		s.store.SetError(apperrors.UserMessage(err, msgRefreshFailed))
		return false, err
	}

	expiresAt := tokenExpiry(*tokens)
	swapped := false
	s.store.Apply(func(sess *domain.Session) {
		if sess.RefreshToken != current {
			return
		}
		sess.AccessToken = tokens.AccessToken
		sess.RefreshToken = tokens.RefreshToken
		sess.AccessTokenExpiresAt = expiresAt
		swapped = true
	})
	if !swapped {
		s.logger.Info("discarding refreshed tokens for a replaced session")
		return false, ErrSessionChanged
	}

	s.publish(ctx, events.EventTokenRefreshed, s.store.Snapshot().User, nil)
	return true, nil
}

// FetchCurrentUser reloads the profile. Failures are logged and returned
// but never clear the session; an invalid token is handled by the gateway.
func (s *SessionService) FetchCurrentUser(ctx context.Context) error {
	user, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Warn("fetch current user failed", zap.Error(err))
		return err
	}

	updated := false
	s.store.Apply(func(sess *domain.Session) {
		if !sess.HasTokens() {
			return
		}
		sess.User = user
		updated = true
	})
	if updated {
		s.publish(ctx, events.EventProfileUpdated, user, nil)
	}
	return nil
}

// ChangePassword rotates the signed-in user's password. The session is untouched.
func (s *SessionService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if err := s.api.ChangePassword(ctx, currentPassword, newPassword); err != nil {
		s.store.SetError(apperrors.UserMessage(err, "Password change failed"))
		return err
	}
	return nil
}

// ForgotPassword requests a reset link. The session is untouched.
func (s *SessionService) ForgotPassword(ctx context.Context, email string) error {
	return s.api.ForgotPassword(ctx, email)
}

// ClearError drops the last user-facing failure.
func (s *SessionService) ClearError() {
	s.store.ClearError()
}

// HasPermission checks perm against the current session.
func (s *SessionService) HasPermission(perm auth.Permission) bool {
	return auth.HasPermission(s.store.Snapshot(), perm)
}

// HasRole checks the current session's role against roles.
func (s *SessionService) HasRole(roles ...domain.Role) bool {
	return auth.HasRole(s.store.Snapshot(), roles...)
}

func (s *SessionService) publish(ctx context.Context, eventType events.EventType, user *domain.User, payload interface{}) {
	event := events.Event{Type: eventType, Payload: payload}
	if user != nil {
		event.UserID = user.ID
		event.Role = user.Role
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// tokenExpiry prefers the JWT exp claim and falls back to expiresIn.
func tokenExpiry(tokens domain.AuthTokens) time.Time {
	if exp, ok := auth.InspectToken(tokens.AccessToken); ok {
		return exp
	}
	if tokens.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	}
	return time.Time{}
}
