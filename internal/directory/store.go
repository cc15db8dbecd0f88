package directory

import "context"

// CompanyStore manages tenants.
type CompanyStore interface {
	Create(ctx context.Context, company *Company) error
	FindByID(ctx context.Context, id string) (*Company, error)
	// FindBySlug returns only active, non-deleted companies.
	FindBySlug(ctx context.Context, slug string) (*Company, error)
	List(ctx context.Context) ([]*Company, error)
	// SlugTaken reports reservation across active and soft-deleted rows.
	SlugTaken(ctx context.Context, slug string) (bool, error)
	Deactivate(ctx context.Context, id string) error
}

// EmployeeStore manages employee records.
type EmployeeStore interface {
	Create(ctx context.Context, employee *Employee) error
	FindByID(ctx context.Context, id string) (*Employee, error)
	// FindBySlug resolves a slug within one company's namespace.
	FindBySlug(ctx context.Context, companyID, slug string) (*Employee, error)
	ListByCompany(ctx context.Context, companyID string) ([]*Employee, error)
}

// DepartmentStore manages departments.
type DepartmentStore interface {
	Create(ctx context.Context, department *Department) error
	FindByID(ctx context.Context, id string) (*Department, error)
	ListByCompany(ctx context.Context, companyID string) ([]*Department, error)
}

// DocumentStore manages document metadata. Bytes live in docs.Storage.
type DocumentStore interface {
	Create(ctx context.Context, document *Document) error
	FindByID(ctx context.Context, id string) (*Document, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Document, error)
}
