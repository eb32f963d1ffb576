package domain

// RoleAdmin grants access to summarization and distribution.
const RoleAdmin = "admin"

// Identity is the authenticated caller of a pipeline operation.
type Identity struct {
	Subject string
	Roles   []string
}

// SystemIdentity is used by the scheduler when it drives the pipeline itself.
var SystemIdentity = Identity{Subject: "scheduler", Roles: []string{RoleAdmin}}

// HasRole reports whether the identity carries role.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity holds the administrator role.
func (i Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// RequireAdmin rejects anonymous or non-admin callers.
func RequireAdmin(id *Identity, operation string) error {
	if id == nil || id.Subject == "" {
		return Wrap(ErrUnauthorized, operation, "authorize", "missing identity", nil)
	}
	if !id.IsAdmin() {
		return Wrap(ErrForbidden, operation, "authorize", "administrator role required", nil)
	}
	return nil
}
