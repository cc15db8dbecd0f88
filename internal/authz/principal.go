package authz

import "time"

// Principal is the request-scoped identity derived from the durable user
// record on every request. It is never persisted.
type Principal struct {
	ID          string
	Role        Role
	CompanyID   string // empty for root accounts
	EmployeeID  string // set when the account is backed by an employee record
	Active      bool
	LockedUntil time.Time
}

// IsRoot reports whether the principal carries the platform-wide role.
func (p Principal) IsRoot() bool {
	return p.Role == RoleRoot
}
