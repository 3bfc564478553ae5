package auth

import (
	"github.com/salescrm/crm-portal/internal/domain"
)

// Permission is a fine-grained resource:verb capability.
type Permission string

const (
	PermLeadCreate            Permission = "lead:create"
	PermLeadRead              Permission = "lead:read"
	PermLeadUpdate            Permission = "lead:update"
	PermLeadDelete            Permission = "lead:delete"
	PermLeadAssign            Permission = "lead:assign"
	PermLeadReassign          Permission = "lead:reassign"
	PermLeadScore             Permission = "lead:score"
	PermLeadExport            Permission = "lead:export"
	PermLeadImport            Permission = "lead:import"
	PermUserCreate            Permission = "user:create"
	PermUserRead              Permission = "user:read"
	PermUserUpdate            Permission = "user:update"
	PermUserDelete            Permission = "user:delete"
	PermUserManageRoles       Permission = "user:manage_roles"
	PermTaskCreate            Permission = "task:create"
	PermTaskRead              Permission = "task:read"
	PermTaskUpdate            Permission = "task:update"
	PermTaskDelete            Permission = "task:delete"
	PermTaskAssign            Permission = "task:assign"
	PermAnalyticsView         Permission = "analytics:view"
	PermAnalyticsExport       Permission = "analytics:export"
	PermSettingsView          Permission = "settings:view"
	PermSettingsUpdate        Permission = "settings:update"
	PermIntegrationConnect    Permission = "integration:connect"
	PermIntegrationDisconnect Permission = "integration:disconnect"
	PermIntegrationConfigure  Permission = "integration:configure"
	PermAuditView             Permission = "audit:view"
	PermAuditExport           Permission = "audit:export"
)

// allPermissions is the universal set granted to admins.
var allPermissions = []Permission{
	PermLeadCreate, PermLeadRead, PermLeadUpdate, PermLeadDelete, PermLeadAssign,
	PermLeadReassign, PermLeadScore, PermLeadExport, PermLeadImport,
	PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete, PermUserManageRoles,
	PermTaskCreate, PermTaskRead, PermTaskUpdate, PermTaskDelete, PermTaskAssign,
	PermAnalyticsView, PermAnalyticsExport,
	PermSettingsView, PermSettingsUpdate,
	PermIntegrationConnect, PermIntegrationDisconnect, PermIntegrationConfigure,
	PermAuditView, PermAuditExport,
}

var rolePermissions = map[domain.Role]map[Permission]struct{}{
	domain.RoleAdmin: toSet(allPermissions...),
	domain.RoleManager: toSet(
		PermLeadCreate, PermLeadRead, PermLeadUpdate, PermLeadAssign, PermLeadReassign,
		PermLeadScore, PermLeadExport, PermLeadImport,
		PermUserRead,
		PermTaskCreate, PermTaskRead, PermTaskUpdate, PermTaskDelete, PermTaskAssign,
		PermAnalyticsView, PermAnalyticsExport,
		PermSettingsView,
		PermAuditView,
	),
	domain.RoleCounselor: toSet(
		PermLeadRead, PermLeadUpdate,
		PermTaskRead, PermTaskUpdate,
		PermAnalyticsView,
	),
	domain.RoleAgent: toSet(
		PermLeadRead, PermLeadUpdate,
		PermTaskRead, PermTaskUpdate,
	),
}

func toSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// AllPermissions returns a copy of the universal permission set.
func AllPermissions() []Permission {
	return append([]Permission(nil), allPermissions...)
}

// PermissionsFor lists the permissions a role grants, in canonical order.
func PermissionsFor(role domain.Role) []Permission {
	set, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]Permission, 0, len(set))
	for _, p := range allPermissions {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// HasPermission answers whether the session's user may perform perm.
func HasPermission(session domain.Session, perm Permission) bool {
	if session.User == nil {
		return false
	}
	if session.User.Role == domain.RoleAdmin {
		return true
	}
	set, ok := rolePermissions[session.User.Role]
	if !ok {
		return false
	}
	_, granted := set[perm]
	return granted
}

// HasRole reports whether the session's user holds one of roles.
func HasRole(session domain.Session, roles ...domain.Role) bool {
	if session.User == nil {
		return false
	}
	for _, role := range roles {
		if session.User.Role == role {
			return true
		}
	}
	return false
}
