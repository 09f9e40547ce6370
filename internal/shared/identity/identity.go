// Package identity carries the authenticated caller across bounded contexts.
package identity

import "strings"

type Role string

const (
	RoleBuyer Role = "buyer"
	RoleAdmin Role = "admin"
	// RoleSystem is used by background jobs and provider callbacks.
	RoleSystem Role = "system"
)

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   string
	Role Role
}

// System returns the actor used by schedulers and webhooks.
func System(name string) Actor {
	return Actor{ID: name, Role: RoleSystem}
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Anonymous reports whether no identity was established.
func (a Actor) Anonymous() bool { return strings.TrimSpace(a.ID) == "" }

// CanAccess reports whether the actor may see a resource owned by ownerID.
func (a Actor) CanAccess(ownerID string) bool {
	if a.Role == RoleAdmin || a.Role == RoleSystem {
		return true
	}
	return !a.Anonymous() && a.ID == ownerID
}
