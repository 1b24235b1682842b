// internal/auth/identity.go
package auth

// RoleUser is the only role handed out; every authenticated member has it.
const RoleUser = "ROLE_USER"

// AnonymousOwner owns analysis results uploaded without an identity.
const AnonymousOwner = "ANONYMOUS"

// Identity is the authenticated caller attached to a request by the auth gate.
type Identity struct {
	Subject string
	Role    string
}

// Owner returns the owner id to record for this identity.
// A nil identity maps to AnonymousOwner.
func (i *Identity) Owner() string {
	if i == nil || i.Subject == "" {
		return AnonymousOwner
	}
	return i.Subject
}
