package crmapi

import (
	"context"
	"errors"

	"github.com/salescrm/crm-portal/internal/domain"
	"github.com/salescrm/crm-portal/internal/gateway"
)

// Doer sends requests through the gateway.
type Doer interface {
	Do(ctx context.Context, req *gateway.Request) (*gateway.Response, error)
}

// AuthAPI wraps the /auth endpoints of the CRM API.
type AuthAPI struct {
	gw Doer
}

// NewAuthAPI constructs the client.
func NewAuthAPI(gw Doer) *AuthAPI {
	return &AuthAPI{gw: gw}
}

// Login exchanges credentials for a profile and token pair.
func (a *AuthAPI) Login(ctx context.Context, creds domain.LoginCredentials) (*domain.AuthPayload, error) {
	req := gateway.Post("/auth/login", creds)
	req.SkipAuthRecovery = true
	return a.authPayload(ctx, req)
}

// Register creates an account and signs it in.
func (a *AuthAPI) Register(ctx context.Context, input domain.RegisterInput) (*domain.AuthPayload, error) {
	req := gateway.Post("/auth/register", input)
	req.SkipAuthRecovery = true
	return a.authPayload(ctx, req)
}

// Logout tells the server to revoke the current session.
func (a *AuthAPI) Logout(ctx context.Context) error {
	req := gateway.Post("/auth/logout", nil)
	req.SkipAuthRecovery = true
	_, err := a.gw.Do(ctx, req)
	return err
}

// Refresh trades a refresh token for a new pair. It never goes through
// refresh-on-401 itself.
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (*domain.AuthTokens, error) {
	req := gateway.Post("/auth/refresh", map[string]string{"refreshToken": refreshToken})
	req.SkipAuthRecovery = true
	resp, err := a.gw.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	var payload domain.RefreshPayload
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Tokens.AccessToken == "" || payload.Tokens.RefreshToken == "" {
		return nil, errors.New("refresh response missing tokens")
	}
	return &payload.Tokens, nil
}

// Me returns the profile of the signed-in user.
func (a *AuthAPI) Me(ctx context.Context) (*domain.User, error) {
	resp, err := a.gw.Do(ctx, gateway.Get("/auth/me", nil))
	if err != nil {
		return nil, err
	}
	var payload domain.ProfilePayload
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, errors.New("profile response missing user")
	}
	return payload.User, nil
}

// ChangePassword rotates the signed-in user's password.
func (a *AuthAPI) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	_, err := a.gw.Do(ctx, gateway.Post("/auth/change-password", map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}))
	return err
}

// ForgotPassword asks the server to mail a reset link.
func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) error {
	req := gateway.Post("/auth/forgot-password", map[string]string{"email": email})
	req.SkipAuthRecovery = true
	_, err := a.gw.Do(ctx, req)
	return err
}

func (a *AuthAPI) authPayload(ctx context.Context, req *gateway.Request) (*domain.AuthPayload, error) {
	resp, err := a.gw.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	var payload domain.AuthPayload
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.User == nil || payload.Tokens.AccessToken == "" || payload.Tokens.RefreshToken == "" {
		return nil, errors.New("auth response missing user or tokens")
	}
	return &payload, nil
}
