package authz

import "time"

// Reason is the closed set of machine-readable denial codes. Reasons are for
// audit logs; transport responses go through Decision.External first.
type Reason string

const (
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonAccountInactive   Reason = "account_inactive"
	ReasonAccountLocked     Reason = "account_locked"
	ReasonInsufficientRole  Reason = "insufficient_role"
	ReasonNoTenantContext   Reason = "no_tenant_context"
	ReasonTenantMismatch    Reason = "tenant_mismatch"
	ReasonOwnershipMismatch Reason = "ownership_mismatch"
	ReasonNotFound          Reason = "not_found"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason        // empty when allowed
	Retry   time.Duration // remaining lock duration for account_locked
}

// Allow returns a passing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a failing decision with the given internal reason.
func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// External collapses enumeration-sensitive reasons into the uniform not-found
// outcome. Absent resources, cross-tenant resources and resources owned by
// someone else must be indistinguishable to the caller.
func (d Decision) External() Decision {
	if d.Allowed {
		return d
	}
	switch d.Reason {
	case ReasonTenantMismatch, ReasonOwnershipMismatch, ReasonNotFound:
		return Decision{Reason: ReasonNotFound}
	}
	return d
}
