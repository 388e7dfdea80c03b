package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAny(t *testing.T) {
	perms := NewPermissionSet([]string{PermPaymentsCreate, PermPaymentsRead})

	tests := []struct {
		name     string
		required []string
		want     bool
	}{
		{"single match", []string{PermPaymentsRead}, true},
		{"one of several matches", []string{PermUsersDelete, PermPaymentsCreate}, true},
		{"no match", []string{PermUsersDelete, PermRolesWrite}, false},
		{"empty required fails closed", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAny(perms, tt.required...))
		})
	}
}

func TestHasAll(t *testing.T) {
	perms := NewPermissionSet([]string{PermPaymentsCreate, PermPaymentsRead, PermPaymentsApprove})

	tests := []struct {
		name     string
		required []string
		want     bool
	}{
		{"full subset", []string{PermPaymentsCreate, PermPaymentsApprove}, true},
		{"partial subset", []string{PermPaymentsCreate, PermUsersWrite}, false},
		{"empty required vacuously true", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAll(perms, tt.required...))
		})
	}
}

func TestIsOwnerOrPermitted(t *testing.T) {
	perms := NewPermissionSet([]string{PermPaymentsRead})

	// Owner may act without the required permission.
	assert.True(t, IsOwnerOrPermitted(7, 7, perms, PermPaymentsReadAll))
	// Non-owner without the permission is refused.
	assert.False(t, IsOwnerOrPermitted(7, 8, perms, PermPaymentsReadAll))
	// Non-owner holding the permission passes.
	privileged := NewPermissionSet([]string{PermPaymentsReadAll})
	assert.True(t, IsOwnerOrPermitted(7, 8, privileged, PermPaymentsReadAll))
}

func TestDefaultRoleRegistry(t *testing.T) {
	// Every default role must be present with a non-empty set.
	for _, name := range []string{RoleUser, RoleManager, RoleAdmin} {
		assert.NotEmpty(t, DefaultRolePermissions[name], name)
		assert.NotEmpty(t, DefaultRoleDescriptions[name], name)
	}

	// The baseline user role must not hold the global read permission;
	// listing for such callers is scoped to their own records.
	user := NewPermissionSet(DefaultRolePermissions[RoleUser])
	assert.False(t, user.Has(PermPaymentsReadAll))
	assert.True(t, user.Has(PermPaymentsCreate))

	// Managers approve, admins process.
	manager := NewPermissionSet(DefaultRolePermissions[RoleManager])
	assert.True(t, manager.Has(PermPaymentsApprove))
	assert.False(t, manager.Has(PermPaymentsProcess))

	admin := NewPermissionSet(DefaultRolePermissions[RoleAdmin])
	for _, p := range AllPermissions {
		assert.True(t, admin.Has(p), p)
	}
}
