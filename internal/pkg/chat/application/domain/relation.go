package chat

// Role is the platform trust level of a user. Private messaging requires at
// least RoleTrusted on both sides; the relationship service computes the
// actual value, this package only compares it.
type Role int16

const (
	RoleBasic   Role = 0
	RoleTrusted Role = 1
	RoleStaff   Role = 2
)

// RelationView is the relationship service's answer about a pair of users.
// Read-only from this core's perspective.
type RelationView struct {
	MutualFollow bool
	Blocked      bool // true if either direction of block is in effect
	RoleA        Role
	RoleB        Role
}

// Eligible applies the conversation eligibility rule: both users at least
// trusted, mutually following, and neither blocking the other. The same rule
// is re-checked on every send; eligibility is not immutable for the
// conversation's lifetime.
func (r RelationView) Eligible() error {
	if r.Blocked {
		return ErrUserBlocked
	}
	if !r.MutualFollow {
		return ErrNotMutualFollow
	}
	if r.RoleA < RoleTrusted || r.RoleB < RoleTrusted {
		return ErrInsufficientRole
	}
	return nil
}
