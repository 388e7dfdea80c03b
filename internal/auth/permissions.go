// Package auth contains the permission vocabulary, the static role
// registry and the pure predicates used to authorize every operation
// in the service. Nothing in this package touches the database or the
// HTTP layer.
package auth

// Permission tokens follow the resource:action shape. The full
// vocabulary is closed; roles combine these tokens freely.
const (
	PermUsersRead   = "users:read"
	PermUsersWrite  = "users:write"
	PermUsersDelete = "users:delete"

	PermRolesRead   = "roles:read"
	PermRolesWrite  = "roles:write"
	PermRolesDelete = "roles:delete"
	PermRolesAssign = "roles:assign"

	PermPaymentsCreate  = "payments:create"
	PermPaymentsRead    = "payments:read"
	PermPaymentsReadAll = "payments:read_all"
	PermPaymentsApprove = "payments:approve"
	PermPaymentsProcess = "payments:process"
	PermPaymentsDelete  = "payments:delete"
)

// Default role names seeded at bootstrap. Every new registration is
// attached to RoleUser.
const (
	RoleUser    = "user"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// AllPermissions lists every known permission token. The admin role
// is seeded with this full set.
var AllPermissions = []string{
	PermUsersRead, PermUsersWrite, PermUsersDelete,
	PermRolesRead, PermRolesWrite, PermRolesDelete, PermRolesAssign,
	PermPaymentsCreate, PermPaymentsRead, PermPaymentsReadAll,
	PermPaymentsApprove, PermPaymentsProcess, PermPaymentsDelete,
}

// DefaultRolePermissions is the static registry mapping the three
// default role names to their seeded permission sets. It is consulted
// only at bootstrap; afterwards the roles table is the source of truth
// and permission sets may be replaced through the role API.
var DefaultRolePermissions = map[string][]string{
	RoleUser: {
		PermPaymentsCreate,
		PermPaymentsRead,
	},
	RoleManager: {
		PermPaymentsCreate,
		PermPaymentsRead,
		PermPaymentsReadAll,
		PermPaymentsApprove,
		PermUsersRead,
		PermRolesRead,
	},
	RoleAdmin: AllPermissions,
}

// DefaultRoleDescriptions holds the seeded free-text description of
// each default role.
var DefaultRoleDescriptions = map[string]string{
	RoleUser:    "Standard account: create and view own payments",
	RoleManager: "Reviews payments: approve or reject pending payments, read all records",
	RoleAdmin:   "Full access to users, roles and the payment workflow",
}
