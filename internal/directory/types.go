package directory

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("directory: not found")
	ErrConflict     = errors.New("directory: already exists")
	ErrInvalidInput = errors.New("directory: invalid input")
)

// Company is an isolated tenant. The slug is immutable and stays reserved
// even after soft deletion so an address can never be reused.
type Company struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Employee is an HR record scoped to one company. The slug is unique within
// the company, not globally.
type Employee struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	UserID       string    `json:"user_id,omitempty"`
	Slug         string    `json:"slug"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Position     string    `json:"position,omitempty"`
	DepartmentID string    `json:"department_id,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Department groups employees within a company.
type Department struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is a stored file attached to an employee. StoredName is the
// generated on-disk name; FileName is the display name only.
type Document struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	EmployeeID  string    `json:"employee_id"`
	Category    string    `json:"category,omitempty"`
	FileName    string    `json:"file_name"`
	StoredName  string    `json:"-"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
