package dto

import (
	"time"

	"github.com/salescrm/crm-portal/internal/domain"
)

// SessionResponse is the portal's view of the session. Tokens never leave
// the process.
type SessionResponse struct {
	User                 *domain.User `json:"user"`
	IsAuthenticated      bool         `json:"isAuthenticated"`
	IsLoading            bool         `json:"isLoading"`
	Error                string       `json:"error,omitempty"`
	AccessTokenExpiresAt *time.Time   `json:"accessTokenExpiresAt,omitempty"`
}

// NewSessionResponse projects a session snapshot.
func NewSessionResponse(s domain.Session) SessionResponse {
	resp := SessionResponse{
		User:            s.User,
		IsAuthenticated: s.IsAuthenticated,
		IsLoading:       s.IsLoading,
		Error:           s.Error,
	}
	if !s.AccessTokenExpiresAt.IsZero() {
		exp := s.AccessTokenExpiresAt.UTC()
		resp.AccessTokenExpiresAt = &exp
	}
	return resp
}

// PermissionsResponse lists what the signed-in role may do.
type PermissionsResponse struct {
	Role        domain.Role `json:"role,omitempty"`
	Permissions []string    `json:"permissions"`
}
