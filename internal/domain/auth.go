package domain

import "time"

// AuthTokens is the token pair issued by the CRM API.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}

// LoginCredentials is the body of POST /auth/login.
type LoginCredentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Role       Role   `json:"role,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Department string `json:"department,omitempty"`
}

// AuthPayload is the data section of login and register responses.
type AuthPayload struct {
	User   *User      `json:"user"`
	Tokens AuthTokens `json:"tokens"`
}

// RefreshPayload is the data section of POST /auth/refresh.
type RefreshPayload struct {
	Tokens AuthTokens `json:"tokens"`
}

// ProfilePayload is the data section of GET /auth/me.
type ProfilePayload struct {
	User *User `json:"user"`
}

// Session is the client-side authentication state.
type Session struct {
	User                 *User     `json:"user"`
	AccessToken          string    `json:"accessToken"`
	RefreshToken         string    `json:"refreshToken"`
	IsAuthenticated      bool      `json:"isAuthenticated"`
	IsLoading            bool      `json:"-"`
	Error                string    `json:"-"`
	AccessTokenExpiresAt time.Time `json:"-"`
}

// HasTokens reports whether a token pair is held.
func (s Session) HasTokens() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// PersistedSession is the durable subset of Session written on every mutation.
type PersistedSession struct {
	AccessToken     string `json:"accessToken,omitempty"`
	RefreshToken    string `json:"refreshToken,omitempty"`
	User            *User  `json:"user"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Persisted extracts the durable subset.
func (s Session) Persisted() PersistedSession {
	return PersistedSession{
		AccessToken:     s.AccessToken,
		RefreshToken:    s.RefreshToken,
		User:            s.User.Clone(),
		IsAuthenticated: s.IsAuthenticated,
	}
}
