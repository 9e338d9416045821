package identity

import (
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// User maps to the users table. UID is the identity provider's subject, so
// it is a plain string rather than a store-generated UUID.
type User struct {
	UID       string    `db:"uid" json:"uid"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      auth.Role `db:"role" json:"role"`
	CreatedAt int64     `db:"created_at" json:"created_at"`
}

// Profile is the /me response: the stored account (when one exists) plus
// the capability set derived from the caller's role.
type Profile struct {
	UID         string           `json:"uid"`
	Email       string           `json:"email"`
	Name        string           `json:"name"`
	Role        auth.Role        `json:"role"`
	Permissions auth.Permissions `json:"permissions"`
}
