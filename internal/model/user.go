package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
// A user references exactly one role via RoleID; the resolved
// role name and permission set are attached per request by the
// authentication middleware, never stored on the user row.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address, stored lower-cased.
//  PasswordHash – bcrypt hashed password, never serialized outward.
//  FirstName    – display name, given part.
//  LastName     – display name, family part.
//  RoleID       – foreign key into the roles table.
//  IsActive     – whether the account is active.
//  LastLoginAt  – when the user last authenticated (null until first login).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64     // users.id
	Email        string     // users.email
	PasswordHash string     // users.password_hash
	FirstName    string     // users.first_name
	LastName     string     // users.last_name
	RoleID       uint64     // users.role_id (references roles.id)
	IsActive     bool       // users.is_active
	LastLoginAt  *time.Time // users.last_login_at (nullable)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// Role represents a row in the `roles` table. Permissions is the
// decoded form of the JSON array column holding the role's
// permission strings. Insertion order of the array is irrelevant.
//
// Fields:
//  ID          – numeric identifier of the role.
//  Name        – unique role name (e.g. user, manager, admin).
//  Description – free-text description of the role's purpose.
//  Permissions – permission strings of shape resource:action.
type Role struct {
	ID          uint64    // roles.id
	Name        string    // roles.name
	Description string    // roles.description
	Permissions []string  // roles.permissions (JSON array column)
	CreatedAt   time.Time // roles.created_at
	UpdatedAt   time.Time // roles.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each
// refresh token belongs to a user. The plain token is not stored;
// only its SHA-256 hash. Rows are deleted at logout or when found
// expired; there is no revocation flag.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}
