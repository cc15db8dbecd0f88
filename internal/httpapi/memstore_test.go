package httpapi

import (
	"context"
	"sync"
	"time"

	"hrcore.io/internal/auth"
	"hrcore.io/internal/directory"
)

// In-memory stores with the same contracts as the Postgres repositories.

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*auth.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*auth.User{}}
}

func (m *memUsers) Create(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return directory.ErrConflict
		}
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, auth.ErrNotFound
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memUsers) UpdatePassword(_ context.Context, userID, hash string, mustChange bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = hash
	u.MustChangePassword = mustChange
	return nil
}

func (m *memUsers) SetResetToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenExpiresAt = expiresAt
	return nil
}

func (m *memUsers) ConsumeResetToken(_ context.Context, userID, tokenHash, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok || u.ResetTokenHash != tokenHash {
		return auth.ErrNotFound
	}
	u.PasswordHash = newHash
	u.MustChangePassword = false
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = time.Time{}
	u.FailedLogins = 0
	return nil
}

func (m *memUsers) RecordFailedLogin(_ context.Context, userID string, threshold int, lockFor time.Duration) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return 0, time.Time{}, auth.ErrNotFound
	}
	u.FailedLogins++
	if u.FailedLogins >= threshold {
		u.LockedUntil = time.Now().Add(lockFor)
	}
	return u.FailedLogins, u.LockedUntil, nil
}

func (m *memUsers) ResetFailedLogins(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.FailedLogins = 0
	return nil
}

func (m *memUsers) Deactivate(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.Active = false
	return nil
}

type memCompanies struct {
	mu   sync.Mutex
	byID map[string]*directory.Company
}

func newMemCompanies() *memCompanies {
	return &memCompanies{byID: map[string]*directory.Company{}}
}

func (m *memCompanies) Create(_ context.Context, c *directory.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Slug == c.Slug {
			return directory.ErrConflict
		}
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCompanies) FindByID(_ context.Context, id string) (*directory.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byID[id]; ok && c.DeletedAt == nil {
		cp := *c
		return &cp, nil
	}
	return nil, directory.ErrNotFound
}

func (m *memCompanies) FindBySlug(_ context.Context, slug string) (*directory.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Slug == slug && c.Active && c.DeletedAt == nil {
			cp := *c
			return &cp, nil
		}
	}
	return nil, directory.ErrNotFound
}

func (m *memCompanies) List(_ context.Context) ([]*directory.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*directory.Company
	for _, c := range m.byID {
		if c.DeletedAt == nil {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memCompanies) SlugTaken(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCompanies) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return directory.ErrNotFound
	}
	now := time.Now()
	c.Active = false
	c.DeletedAt = &now
	return nil
}

type memEmployees struct {
	mu   sync.Mutex
	byID map[string]*directory.Employee
}

func newMemEmployees() *memEmployees {
	return &memEmployees{byID: map[string]*directory.Employee{}}
}

func (m *memEmployees) Create(_ context.Context, e *directory.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.CompanyID == e.CompanyID && existing.Slug == e.Slug {
			return directory.ErrConflict
		}
	}
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEmployees) FindByID(_ context.Context, id string) (*directory.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.byID[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, directory.ErrNotFound
}

func (m *memEmployees) FindBySlug(_ context.Context, companyID, slug string) (*directory.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.byID {
		if e.CompanyID == companyID && e.Slug == slug {
			cp := *e
			return &cp, nil
		}
	}
	return nil, directory.ErrNotFound
}

func (m *memEmployees) ListByCompany(_ context.Context, companyID string) ([]*directory.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*directory.Employee
	for _, e := range m.byID {
		if e.CompanyID == companyID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memDepartments struct {
	mu   sync.Mutex
	byID map[string]*directory.Department
}

func newMemDepartments() *memDepartments {
	return &memDepartments{byID: map[string]*directory.Department{}}
}

func (m *memDepartments) Create(_ context.Context, d *directory.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.byID[d.ID] = &cp
	return nil
}

func (m *memDepartments) FindByID(_ context.Context, id string) (*directory.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byID[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, directory.ErrNotFound
}

func (m *memDepartments) ListByCompany(_ context.Context, companyID string) ([]*directory.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*directory.Department
	for _, d := range m.byID {
		if d.CompanyID == companyID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memDocuments struct {
	mu   sync.Mutex
	byID map[string]*directory.Document
}

func newMemDocuments() *memDocuments {
	return &memDocuments{byID: map[string]*directory.Document{}}
}

func (m *memDocuments) Create(_ context.Context, d *directory.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.byID[d.ID] = &cp
	return nil
}

func (m *memDocuments) FindByID(_ context.Context, id string) (*directory.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byID[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, directory.ErrNotFound
}

func (m *memDocuments) ListByEmployee(_ context.Context, employeeID string) ([]*directory.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*directory.Document
	for _, d := range m.byID {
		if d.EmployeeID == employeeID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}
