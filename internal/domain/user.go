package domain

// Role is a coarse authorization category assigned to every CRM user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleCounselor Role = "counselor"
	RoleAgent     Role = "agent"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCounselor, RoleAgent:
		return true
	}
	return false
}

// UserStatus represents lifecycle states for a CRM user.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusPending   UserStatus = "pending"
)

// User is the profile returned by the CRM API for the signed-in operator.
type User struct {
	ID               string     `json:"_id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	FullName         string     `json:"fullName,omitempty"`
	Role             Role       `json:"role"`
	Status           UserStatus `json:"status"`
	Avatar           string     `json:"avatar,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Department       string     `json:"department,omitempty"`
	MaxLeadsCapacity int        `json:"maxLeadsCapacity,omitempty"`
	LastLoginAt      string     `json:"lastLoginAt,omitempty"`
	CreatedAt        string     `json:"createdAt,omitempty"`
	UpdatedAt        string     `json:"updatedAt,omitempty"`
}

// DisplayName prefers the server-computed full name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Clone returns an independent copy of the profile.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
