package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/salescrm/crm-portal/internal/domain"
)

func sessionWithRole(role domain.Role) domain.Session {
	return domain.Session{
		User:            &domain.User{ID: "u1", Email: "a@b.com", Role: role},
		IsAuthenticated: true,
	}
}

func TestHasPermissionAnonymous(t *testing.T) {
	assert.False(t, HasPermission(domain.Session{}, PermLeadRead))
}

func TestHasPermissionAdminIsUniversal(t *testing.T) {
	admin := sessionWithRole(domain.RoleAdmin)
	for _, perm := range AllPermissions() {
		assert.True(t, HasPermission(admin, perm), perm)
	}
	assert.True(t, HasPermission(admin, Permission("reports:unknown")))
}

func TestHasPermissionByRole(t *testing.T) {
	tests := []struct {
		role domain.Role
		perm Permission
		want bool
	}{
		{domain.RoleManager, PermLeadAssign, true},
		{domain.RoleManager, PermLeadDelete, false},
		{domain.RoleManager, PermAuditView, true},
		{domain.RoleCounselor, PermAnalyticsView, true},
		{domain.RoleCounselor, PermTaskCreate, false},
		{domain.RoleAgent, PermLeadUpdate, true},
		{domain.RoleAgent, PermAnalyticsView, false},
		{domain.Role("intern"), PermLeadRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(sessionWithRole(tt.role), tt.perm))
		})
	}
}

func TestAdminSetIsSupersetOfEveryRole(t *testing.T) {
	admin := toSet(PermissionsFor(domain.RoleAdmin)...)
	for _, role := range []domain.Role{domain.RoleManager, domain.RoleCounselor, domain.RoleAgent} {
		for _, perm := range PermissionsFor(role) {
			_, ok := admin[perm]
			assert.True(t, ok, "%s grants %s outside the admin set", role, perm)
		}
	}
	assert.Len(t, PermissionsFor(domain.RoleAdmin), 28)
	assert.Len(t, PermissionsFor(domain.RoleManager), 18)
	assert.Len(t, PermissionsFor(domain.RoleCounselor), 5)
	assert.Len(t, PermissionsFor(domain.RoleAgent), 4)
}

func TestHasRole(t *testing.T) {
	agent := sessionWithRole(domain.RoleAgent)
	admin := sessionWithRole(domain.RoleAdmin)

	assert.False(t, HasRole(agent, domain.RoleAdmin, domain.RoleManager))
	assert.True(t, HasRole(admin, domain.RoleAdmin, domain.RoleManager))
	assert.False(t, HasRole(domain.Session{}, domain.RoleAgent))
	assert.False(t, HasRole(admin))
}

func TestResolverIsDeterministic(t *testing.T) {
	counselor := sessionWithRole(domain.RoleCounselor)
	first := make([]bool, 0, len(allPermissions))
	for _, perm := range allPermissions {
		first = append(first, HasPermission(counselor, perm))
	}

	// interleave unrelated queries, then ask again in reverse order
	HasRole(sessionWithRole(domain.RoleAdmin), domain.RoleAdmin)
	HasPermission(sessionWithRole(domain.RoleManager), PermLeadImport)

	for i := len(allPermissions) - 1; i >= 0; i-- {
		assert.Equal(t, first[i], HasPermission(counselor, allPermissions[i]))
	}
}

func TestPermissionsForReturnsCopy(t *testing.T) {
	perms := PermissionsFor(domain.RoleAgent)
	perms[0] = PermAuditExport
	assert.Equal(t, PermLeadRead, PermissionsFor(domain.RoleAgent)[0])
	assert.Nil(t, PermissionsFor(domain.Role("ghost")))
}
