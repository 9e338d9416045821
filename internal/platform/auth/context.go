package auth

import "context"

// Role is a clinic user role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
	RoleStaff  Role = "staff"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleStaff:
		return true
	}
	return false
}

// Identity is the authenticated user attached to a request. It replaces any
// ambient "current user" state: every service call that needs to know who is
// acting receives an Identity explicitly.
type Identity struct {
	UID   string
	Email string
	Name  string
	Role  Role
}

// DisplayName returns the user's name, falling back to email.
func (id Identity) DisplayName() string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}

type contextKey string

const identityKey contextKey = "auth_identity"

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok
}
