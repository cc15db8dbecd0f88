package authz

import (
	"time"

	"hrcore.io/internal/obs"
)

// ResourceRef names the tenant and optional individual owner of the resource
// a request targets.
type ResourceRef struct {
	CompanyID   string
	OwnerUserID string // user id owning the resource, when individually owned
	OwnerOnly   bool   // restrict the employee tier to its own resource
}

// Requirement declares what a route demands: a role allow-list, whether the
// route is tenant-scoped, and optionally a specific resource.
type Requirement struct {
	Roles        RoleSet
	TenantScoped bool
	Resource     *ResourceRef
}

// Guard evaluates the fixed gate chain for a request. Gates run in order and
// short-circuit on the first failure; the root role skips the tenant and
// ownership gates but not authentication, activity or role membership.
type Guard struct {
	now func() time.Time
}

// GuardOption configures Guard behavior.
type GuardOption func(*Guard)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) GuardOption {
	return func(g *Guard) {
		if fn != nil {
			g.now = fn
		}
	}
}

// NewGuard constructs a Guard.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize runs the gate chain against the principal. A nil principal fails
// the first gate.
func (g *Guard) Authorize(principal *Principal, req Requirement) Decision {
	d := g.evaluate(principal, req)
	gate := "allowed"
	if !d.Allowed {
		gate = string(d.Reason)
	}
	obs.ObserveDecision(gate, d.Allowed)
	return d
}

func (g *Guard) evaluate(principal *Principal, req Requirement) Decision {
	// Gate 1: a principal must exist.
	if principal == nil || principal.ID == "" {
		return Deny(ReasonUnauthenticated)
	}

	// Gate 2: the account must be active and outside any lockout window.
	if !principal.Active {
		return Deny(ReasonAccountInactive)
	}
	if until := principal.LockedUntil; !until.IsZero() {
		if now := g.now(); now.Before(until) {
			d := Deny(ReasonAccountLocked)
			d.Retry = until.Sub(now)
			return d
		}
	}

	// Gate 3: role membership against the route allow-list.
	if len(req.Roles) > 0 && !req.Roles.Contains(principal.Role) {
		return Deny(ReasonInsufficientRole)
	}

	if principal.IsRoot() {
		return Allow()
	}

	// Gate 4: tenant-scoped routes need a tenant on the principal.
	if req.TenantScoped && principal.CompanyID == "" {
		return Deny(ReasonNoTenantContext)
	}

	if req.Resource == nil {
		return Allow()
	}

	// Gate 5: the resource must live in the principal's tenant.
	if req.Resource.CompanyID != principal.CompanyID {
		return Deny(ReasonTenantMismatch)
	}

	// Gate 6: the employee tier may only touch individually owned resources
	// it owns itself.
	if req.Resource.OwnerOnly && principal.Role == RoleEmployee {
		if req.Resource.OwnerUserID == "" || req.Resource.OwnerUserID != principal.ID {
			return Deny(ReasonOwnershipMismatch)
		}
	}

	return Allow()
}
