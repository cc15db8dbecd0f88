package authz

import (
	"context"
	"errors"

	"hrcore.io/internal/directory"
)

// Resolver maps human-typed slugs to internal records under the guard's
// rules. Absence and lack of authorization produce the identical denied
// decision: slugs are guessable, and a distinguishable error would let a
// caller enumerate valid tenants and employees.
type Resolver struct {
	guard     *Guard
	companies directory.CompanyStore
	employees directory.EmployeeStore
}

// NewResolver constructs a Resolver.
func NewResolver(guard *Guard, companies directory.CompanyStore, employees directory.EmployeeStore) (*Resolver, error) {
	if guard == nil {
		return nil, errors.New("authz: guard is required")
	}
	if companies == nil || employees == nil {
		return nil, errors.New("authz: company and employee stores are required")
	}
	return &Resolver{guard: guard, companies: companies, employees: employees}, nil
}

// ResolveCompany resolves a tenant slug for the principal. Denials carry the
// internal reason for audit logging; the transport layer must respond with
// Decision.External so unknown and forbidden slugs collapse to one signal.
// A non-nil error means store failure, not denial.
func (r *Resolver) ResolveCompany(ctx context.Context, principal *Principal, slug string) (*directory.Company, Decision, error) {
	if err := directory.ValidateSlug(slug); err != nil {
		return nil, Deny(ReasonNotFound), nil
	}
	company, err := r.companies.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			// Run the guard anyway so the work done for absent and
			// forbidden slugs stays comparable.
			r.guard.Authorize(principal, Requirement{Roles: AllRoles(), TenantScoped: true})
			return nil, Deny(ReasonNotFound), nil
		}
		return nil, Deny(ReasonNotFound), err
	}

	d := r.guard.Authorize(principal, Requirement{
		Roles:        AllRoles(),
		TenantScoped: true,
		Resource:     &ResourceRef{CompanyID: company.ID},
	})
	if !d.Allowed {
		return nil, d, nil
	}
	return company, Allow(), nil
}

// ResolveEmployee resolves an employee slug within an already-resolved
// company. The employee tier may resolve only the slug backing its own
// record; externally, denial is indistinguishable from absence.
func (r *Resolver) ResolveEmployee(ctx context.Context, principal *Principal, company *directory.Company, slug string) (*directory.Employee, Decision, error) {
	if company == nil {
		return nil, Deny(ReasonNotFound), nil
	}
	if err := directory.ValidateSlug(slug); err != nil {
		return nil, Deny(ReasonNotFound), nil
	}
	employee, err := r.employees.FindBySlug(ctx, company.ID, slug)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, Deny(ReasonNotFound), nil
		}
		return nil, Deny(ReasonNotFound), err
	}

	d := r.guard.Authorize(principal, Requirement{
		Roles:        AllRoles(),
		TenantScoped: true,
		Resource: &ResourceRef{
			CompanyID:   employee.CompanyID,
			OwnerUserID: employee.UserID,
			OwnerOnly:   true,
		},
	})
	if !d.Allowed {
		return nil, d, nil
	}
	return employee, Allow(), nil
}
