package auth

// PermissionSet is an immutable snapshot of a caller's permissions,
// resolved once per request from the caller's role. Lookups are
// constant time.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a PermissionSet from a slice of permission
// strings. Duplicates are harmless.
func NewPermissionSet(perms []string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the single permission p.
func (s PermissionSet) Has(p string) bool {
	_, ok := s[p]
	return ok
}

// Slice returns the set's members as a slice, for inclusion in
// forbidden-response payloads. Order is unspecified.
func (s PermissionSet) Slice() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}

// CallerKey is the echo context key under which the authentication
// middleware stores the resolved Caller.
const CallerKey = "auth_caller"

// Caller is the authenticated identity attached to a request by the
// authentication middleware and passed explicitly into handlers. The
// permission set is a snapshot taken when the request was
// authenticated; it is never re-read mid-request.
type Caller struct {
	ID          uint64
	Email       string
	RoleID      uint64
	RoleName    string
	Permissions PermissionSet
}

// HasAny reports whether the caller's permissions intersect required
// (OR semantics). An empty required set evaluates to false so that a
// miswired call site fails closed; gates must always name at least
// one permission.
func HasAny(perms PermissionSet, required ...string) bool {
	for _, p := range required {
		if perms.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether required is a subset of the caller's
// permissions (AND semantics). An empty required set is vacuously
// satisfied.
func HasAll(perms PermissionSet, required ...string) bool {
	for _, p := range required {
		if !perms.Has(p) {
			return false
		}
	}
	return true
}

// IsOwnerOrPermitted is the ownership-override rule used for profile
// and payment reads and writes: the caller may act on a resource they
// own, or on any resource when holding the required permission.
func IsOwnerOrPermitted(resourceOwnerID, callerID uint64, perms PermissionSet, required string) bool {
	if resourceOwnerID == callerID {
		return true
	}
	return perms.Has(required)
}
