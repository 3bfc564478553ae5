package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salescrm/crm-portal/internal/auth"
	"github.com/salescrm/crm-portal/internal/config"
	"github.com/salescrm/crm-portal/internal/domain"
	"github.com/salescrm/crm-portal/internal/repository"
	apperrors "github.com/salescrm/crm-portal/pkg/util/errorutil"
)

const resetTokenTTL = time.Hour

// AuthService implements the CRM auth API served by the development stub:
// credential checks, token issuing and refresh-token rotation.
type AuthService struct {
	users      repository.UserRepository
	refreshes  repository.RefreshTokenRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	passwords  *auth.PasswordHasher
	refreshTTL time.Duration
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	RefreshTokenRepo  repository.RefreshTokenRepository
	PasswordResetRepo repository.PasswordResetRepository
	Logger            *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.StubConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	refreshTTL := time.Duration(cfg.RefreshTokenTTLMinutes) * time.Minute
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:      deps.UserRepo,
		refreshes:  deps.RefreshTokenRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		passwords:  auth.NewPasswordHasher(cfg.BcryptCost),
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// TokenManager exposes the access token signer for the bearer middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// SeedAccount creates an account unless the email is already registered.
func (s *AuthService) SeedAccount(ctx context.Context, input domain.RegisterInput) error {
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil
	}
	_, err := s.createAccount(ctx, input)
	return err
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, input domain.RegisterInput) (*domain.AuthPayload, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" ||
		strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, apperrors.NewValidationError("email, password, firstName and lastName are required")
	}
	if err := auth.CheckPasswordPolicy(input.Password); err != nil {
		return nil, err
	}

	account, err := s.createAccount(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, account)
}

func (s *AuthService) createAccount(ctx context.Context, input domain.RegisterInput) (*repository.Account, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleAgent
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role " + string(role))
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	account := &repository.Account{
		User: domain.User{
			Email:      input.Email,
			FirstName:  input.FirstName,
			LastName:   input.LastName,
			Role:       role,
			Status:     domain.UserStatusActive,
			Phone:      input.Phone,
			Department: input.Department,
		},
		PasswordHash: hash,
	}
	account.User.FullName = account.User.DisplayName()
	if err := s.users.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.NewConflict("User with this email already exists")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return account, nil
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AuthPayload, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required")
	}

	account, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if account.User.Status != domain.UserStatusActive {
		return nil, apperrors.NewDomainError(apperrors.CategoryForbidden, "ACCOUNT_INACTIVE",
			"Account is "+string(account.User.Status), http.StatusForbidden)
	}

	account.User.LastLoginAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.users.Update(ctx, account); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return s.signIn(ctx, account)
}

// Refresh rotates a refresh token. Presenting an already rotated token
// revokes every token of its owner.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthTokens, error) {
	if refreshToken == "" {
		return nil, apperrors.NewValidationError("refreshToken is required")
	}

	stored, err := s.refreshes.GetByToken(ctx, refreshToken)
	if err != nil {
		return nil, invalidRefreshToken()
	}
	if !stored.Active(time.Now()) {
		if stored.RevokedAt != nil {
			revoked, _ := s.refreshes.RevokeForUser(ctx, stored.UserID)
			s.logger.Warn("refresh token reuse detected",
				zap.String("user_id", stored.UserID), zap.Int("revoked", revoked))
		}
		return nil, invalidRefreshToken()
	}

	account, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, invalidRefreshToken()
	}
	if err := s.refreshes.Revoke(ctx, stored.ID); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return s.issueTokens(ctx, &account.User)
}

// Logout revokes every refresh token of the user.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	revoked, err := s.refreshes.RevokeForUser(ctx, userID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged out", zap.String("user_id", userID), zap.Int("revoked", revoked))
	return nil
}

// Me returns the profile behind an access token subject.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	account, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewUnauthorized("user not found")
	}
	return &account.User, nil
}

// ChangePassword verifies the current password and stores the new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := auth.CheckPasswordPolicy(newPassword); err != nil {
		return err
	}
	account, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperrors.NewUnauthorized("user not found")
	}
	// a wrong current password is a validation failure, not an expired session
	if err := s.passwords.Verify(account.PasswordHash, currentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperrors.NewValidationError("Current password is incorrect")
		}
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	if err := s.users.Update(ctx, account); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// ForgotPassword records a reset request. Unknown emails succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.NewValidationError("email is required")
	}
	account, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil
	}
	token := &repository.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    account.User.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("password reset requested", zap.String("user_id", account.User.ID))
	return nil
}

func (s *AuthService) signIn(ctx context.Context, account *repository.Account) (*domain.AuthPayload, error) {
	tokens, err := s.issueTokens(ctx, &account.User)
	if err != nil {
		return nil, err
	}
	user := account.User
	return &domain.AuthPayload{User: &user, Tokens: *tokens}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*domain.AuthTokens, error) {
	access, _, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refresh := &repository.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.refreshes.Create(ctx, refresh); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.tokenMgr.TTL().Seconds()),
	}, nil
}

func invalidCredentials() error {
	return apperrors.NewDomainError(apperrors.CategoryCredential, "INVALID_CREDENTIALS",
		"Invalid email or password", http.StatusUnauthorized)
}

func invalidRefreshToken() error {
	return apperrors.NewDomainError(apperrors.CategoryCredential, "INVALID_REFRESH_TOKEN",
		"Invalid or expired refresh token", http.StatusUnauthorized)
}
