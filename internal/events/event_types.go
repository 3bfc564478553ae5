package events

import (
	"time"

	"github.com/salescrm/crm-portal/internal/domain"
)

// EventType enumerates session lifecycle events.
type EventType string

const (
	EventLoggedIn       EventType = "logged_in"
	EventRegistered     EventType = "registered"
	EventLoggedOut      EventType = "logged_out"
	EventTokenRefreshed EventType = "token_refreshed"
	EventSessionExpired EventType = "session_expired"
	EventProfileUpdated EventType = "profile_updated"
)

// Event represents a session transition emitted by the session controller.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// SessionExpiredPayload records why the session was torn down.
type SessionExpiredPayload struct {
	Reason string `json:"reason"`
}

// LoggedOutPayload records whether the server acknowledged the logout.
type LoggedOutPayload struct {
	ServerAcknowledged bool `json:"server_acknowledged"`
}
