package pg

import (
	"context"
	"database/sql"
	"errors"

	"hrcore.io/internal/directory"
)

// CompanyRepo implements directory.CompanyStore.
type CompanyRepo struct {
	db *sql.DB
}

// Companies returns the company repository.
func (s *Store) Companies() *CompanyRepo { return &CompanyRepo{db: s.db} }

var _ directory.CompanyStore = (*CompanyRepo)(nil)

const companyColumns = `id, slug, name, active, created_at, updated_at, deleted_at`

func (r *CompanyRepo) Create(ctx context.Context, c *directory.Company) error {
	_, err := r.db.ExecContext(ctx, `
		insert into companies (id, slug, name, active)
		values ($1, $2, $3, $4)
	`, c.ID, c.Slug, c.Name, c.Active)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return directory.ErrConflict
	}
	return err
}

func (r *CompanyRepo) FindByID(ctx context.Context, id string) (*directory.Company, error) {
	row := r.db.QueryRowContext(ctx, `
		select `+companyColumns+` from companies where id = $1 and deleted_at is null
	`, id)
	return scanCompany(row)
}

// FindBySlug returns only active, non-deleted companies. Inactive and deleted
// tenants are indistinguishable from absent ones.
func (r *CompanyRepo) FindBySlug(ctx context.Context, slug string) (*directory.Company, error) {
	row := r.db.QueryRowContext(ctx, `
		select `+companyColumns+` from companies
		where slug = $1 and active and deleted_at is null
	`, slug)
	return scanCompany(row)
}

func (r *CompanyRepo) List(ctx context.Context) ([]*directory.Company, error) {
	rows, err := r.db.QueryContext(ctx, `
		select `+companyColumns+` from companies
		where deleted_at is null
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*directory.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// SlugTaken reports reservation across active and soft-deleted rows, so a
// retired tenant's address is never reissued.
func (r *CompanyRepo) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx, `
		select exists(select 1 from companies where slug = $1)
	`, slug).Scan(&taken)
	return taken, err
}

func (r *CompanyRepo) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		update companies set active = false, deleted_at = now(), updated_at = now()
		where id = $1 and deleted_at is null
	`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

func scanCompany(row rowScanner) (*directory.Company, error) {
	var (
		c       directory.Company
		deleted sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if deleted.Valid {
		t := deleted.Time
		c.DeletedAt = &t
	}
	return &c, nil
}

// EmployeeRepo implements directory.EmployeeStore.
type EmployeeRepo struct {
	db *sql.DB
}

// Employees returns the employee repository.
func (s *Store) Employees() *EmployeeRepo { return &EmployeeRepo{db: s.db} }

var _ directory.EmployeeStore = (*EmployeeRepo)(nil)

const employeeColumns = `id, company_id, coalesce(user_id, ''), slug, first_name, last_name,
	email, coalesce(position, ''), coalesce(department_id, ''), active, created_at, updated_at`

func (r *EmployeeRepo) Create(ctx context.Context, e *directory.Employee) error {
	_, err := r.db.ExecContext(ctx, `
		insert into employees (id, company_id, user_id, slug, first_name, last_name,
			email, position, department_id, active)
		values ($1, $2, nullif($3, ''), $4, $5, $6, $7, nullif($8, ''), nullif($9, ''), $10)
	`, e.ID, e.CompanyID, e.UserID, e.Slug, e.FirstName, e.LastName,
		e.Email, e.Position, e.DepartmentID, e.Active)
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return directory.ErrConflict
		case pgErrForeignKeyViolation:
			return directory.ErrInvalidInput
		}
	}
	return err
}

func (r *EmployeeRepo) FindByID(ctx context.Context, id string) (*directory.Employee, error) {
	row := r.db.QueryRowContext(ctx, `
		select `+employeeColumns+` from employees where id = $1
	`, id)
	return scanEmployee(row)
}

// FindBySlug resolves within one company's namespace; the same slug may exist
// in any number of other companies.
func (r *EmployeeRepo) FindBySlug(ctx context.Context, companyID, slug string) (*directory.Employee, error) {
	row := r.db.QueryRowContext(ctx, `
		select `+employeeColumns+` from employees where company_id = $1 and slug = $2
	`, companyID, slug)
	return scanEmployee(row)
}

func (r *EmployeeRepo) ListByCompany(ctx context.Context, companyID string) ([]*directory.Employee, error) {
	rows, err := r.db.QueryContext(ctx, `
		select `+employeeColumns+` from employees
		where company_id = $1
		order by last_name, first_name
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*directory.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanEmployee(row rowScanner) (*directory.Employee, error) {
	var e directory.Employee
	err := row.Scan(&e.ID, &e.CompanyID, &e.UserID, &e.Slug, &e.FirstName, &e.LastName,
		&e.Email, &e.Position, &e.DepartmentID, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DepartmentRepo implements directory.DepartmentStore.
type DepartmentRepo struct {
	db *sql.DB
}

// Departments returns the department repository.
func (s *Store) Departments() *DepartmentRepo { return &DepartmentRepo{db: s.db} }

var _ directory.DepartmentStore = (*DepartmentRepo)(nil)

func (r *DepartmentRepo) Create(ctx context.Context, d *directory.Department) error {
	_, err := r.db.ExecContext(ctx, `
		insert into departments (id, company_id, name)
		values ($1, $2, $3)
	`, d.ID, d.CompanyID, d.Name)
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return directory.ErrConflict
		case pgErrForeignKeyViolation:
			return directory.ErrInvalidInput
		}
	}
	return err
}

func (r *DepartmentRepo) FindByID(ctx context.Context, id string) (*directory.Department, error) {
	var d directory.Department
	err := r.db.QueryRowContext(ctx, `
		select id, company_id, name, created_at from departments where id = $1
	`, id).Scan(&d.ID, &d.CompanyID, &d.Name, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DepartmentRepo) ListByCompany(ctx context.Context, companyID string) ([]*directory.Department, error) {
	rows, err := r.db.QueryContext(ctx, `
		select id, company_id, name, created_at from departments
		where company_id = $1
		order by name
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*directory.Department
	for rows.Next() {
		var d directory.Department
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &d)
	}
	return result, rows.Err()
}

// DocumentRepo implements directory.DocumentStore.
type DocumentRepo struct {
	db *sql.DB
}

// Documents returns the document metadata repository.
func (s *Store) Documents() *DocumentRepo { return &DocumentRepo{db: s.db} }

var _ directory.DocumentStore = (*DocumentRepo)(nil)

const documentColumns = `id, company_id, employee_id, coalesce(category, ''), file_name,
	stored_name, content_type, size_bytes, uploaded_by, created_at`

func (r *DocumentRepo) Create(ctx context.Context, d *directory.Document) error {
	_, err := r.db.ExecContext(ctx, `
		insert into documents (id, company_id, employee_id, category, file_name,
			stored_name, content_type, size_bytes, uploaded_by)
		values ($1, $2, $3, nullif($4, ''), $5, $6, $7, $8, $9)
	`, d.ID, d.CompanyID, d.EmployeeID, d.Category, d.FileName,
		d.StoredName, d.ContentType, d.SizeBytes, d.UploadedBy)
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return directory.ErrConflict
		case pgErrForeignKeyViolation:
			return directory.ErrInvalidInput
		}
	}
	return err
}

func (r *DocumentRepo) FindByID(ctx context.Context, id string) (*directory.Document, error) {
	row := r.db.QueryRowContext(ctx, `
		select `+documentColumns+` from documents where id = $1
	`, id)
	return scanDocument(row)
}

func (r *DocumentRepo) ListByEmployee(ctx context.Context, employeeID string) ([]*directory.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		select `+documentColumns+` from documents
		where employee_id = $1
		order by created_at desc
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*directory.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func scanDocument(row rowScanner) (*directory.Document, error) {
	var d directory.Document
	err := row.Scan(&d.ID, &d.CompanyID, &d.EmployeeID, &d.Category, &d.FileName,
		&d.StoredName, &d.ContentType, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
