package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"hrcore.io/internal/audit"
	"hrcore.io/internal/auth"
	"hrcore.io/internal/authz"
	"hrcore.io/internal/directory"
	"hrcore.io/internal/ids"
)

type createCompanyRequest struct {
	Name       string `json:"name"`
	AdminEmail string `json:"admin_email"`
}

type createEmployeeRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Position      string `json:"position"`
	DepartmentID  string `json:"department_id"`
	CreateAccount bool   `json:"create_account"`
}

type createDepartmentRequest struct {
	Name string `json:"name"`
}

func (a *API) handleCompaniesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createCompany(w, r)
	case http.MethodGet:
		a.listCompanies(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

// createCompany provisions a tenant and optionally its first admin account.
// Root only; the slug derives from the name and is reserved forever.
func (a *API) createCompany(w http.ResponseWriter, r *http.Request) {
	principal := principalOrNil(r)
	if d := a.guard.Authorize(principal, authz.Requirement{Roles: authz.Roles(authz.RoleRoot)}); !d.Allowed {
		writeDecision(w, r, r.URL.Path, d)
		return
	}
	var req createCompanyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	slug := directory.Slugify(req.Name)
	if err := directory.ValidateSlug(slug); err != nil {
		writeError(w, r, http.StatusBadRequest, "company name does not produce a usable slug")
		return
	}
	taken, err := a.companies.SlugTaken(r.Context(), slug)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "operation failed")
		return
	}
	if taken {
		writeError(w, r, http.StatusConflict, "company slug is already reserved")
		return
	}

	company := &directory.Company{
		ID:     ids.New(),
		Slug:   slug,
		Name:   strings.TrimSpace(req.Name),
		Active: true,
	}
	if err := a.companies.Create(r.Context(), company); err != nil {
		handleStoreError(w, r, err)
		return
	}

	var adminEmail string
	if strings.TrimSpace(req.AdminEmail) != "" {
		admin, err := a.auth.Provision(r.Context(), auth.NewAccount{
			Email:     req.AdminEmail,
			Role:      authz.RoleAdmin,
			CompanyID: company.ID,
		})
		if err != nil {
			if errors.Is(err, directory.ErrConflict) {
				writeError(w, r, http.StatusConflict, "admin email is already registered")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "admin provisioning failed")
			return
		}
		adminEmail = admin.Email
	}

	_ = audit.LogEvent(r.Context(), "company.created", map[string]any{
		"company_id": company.ID,
		"slug":       company.Slug,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/companies/%s", company.Slug))
	resp := map[string]any{"company": company}
	if adminEmail != "" {
		resp["admin_email"] = adminEmail
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) listCompanies(w http.ResponseWriter, r *http.Request) {
	principal := principalOrNil(r)
	if d := a.guard.Authorize(principal, authz.Requirement{Roles: authz.Roles(authz.RoleRoot)}); !d.Allowed {
		writeDecision(w, r, r.URL.Path, d)
		return
	}
	companies, err := a.companies.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "operation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": companies,
	})
}

// handleCompanyScoped resolves the tenant slug once and dispatches everything
// beneath /v1/companies/{slug}/.
func (a *API) handleCompanyScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/companies/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")

	principal := principalOrNil(r)
	company, d, err := a.resolver.ResolveCompany(r.Context(), principal, parts[0])
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "operation failed")
		return
	}
	if !d.Allowed {
		writeDecision(w, r, r.URL.Path, d)
		return
	}
	ctx := authz.ContextWithCompany(r.Context(), authz.CompanyContext{ID: company.ID, Slug: company.Slug})
	r = r.WithContext(ctx)

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, company)
		return
	}

	switch parts[1] {
	case "employees":
		a.handleCompanyEmployees(w, r, principal, company, parts[2:])
	case "departments":
		if len(parts) != 2 {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		a.handleCompanyDepartments(w, r, principal, company)
	case "documents":
		if len(parts) != 3 {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		a.downloadDocument(w, r, principal, company, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleCompanyEmployees(w http.ResponseWriter, r *http.Request, principal *authz.Principal, company *directory.Company, rest []string) {
	switch len(rest) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			a.listEmployees(w, r, principal, company)
		case http.MethodPost:
			a.createEmployee(w, r, principal, company)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	case 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getEmployee(w, r, principal, company, rest[0])
	case 2:
		if rest[1] != "documents" {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			a.listEmployeeDocuments(w, r, principal, company, rest[0])
		case http.MethodPost:
			a.uploadDocument(w, r, principal, company, rest[0])
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// listEmployees is a management view; the employee tier sees individual
// records through its own slug, not the roster.
func (a *API) listEmployees(w http.ResponseWriter, r *http.Request, principal *authz.Principal, company *directory.Company) {
	d := a.guard.Authorize(principal, authz.Requirement{
		Roles:        authz.Roles(authz.RoleRoot, authz.RoleAdmin, authz.RoleManager),
		TenantScoped: true,
		Resource:     &authz.ResourceRef{CompanyID: company.ID},
	})
	if !d.Allowed {
		writeDecision(w, r, r.URL.Path, d)
		return
	}
	employees, err := a.employees.ListByCompany(r.Context(), company.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "operation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": employees,
	})
}

func (a *API) createEmployee(w http.ResponseWriter, r *http.Request, principal *authz.Principal, company *directory.Company) {
	d := a.guard.Authorize(principal, authz.Requirement{
		Roles:        authz.Roles(authz.RoleRoot, authz.RoleAdmin),
		TenantScoped: true,
		Resource:     &authz.ResourceRef{CompanyID: company.ID},
	})
	if !d.Allowed {
		writeDecision(w, r, r.URL.Path, d)
		return
	}
	var req createEmployeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	base := directory.Slugify(strings.TrimSpace(req.FirstName + " " + req.LastName))
	if err := directory.ValidateSlug(base); err != nil {
		writeError(w, r, http.StatusBadRequest, "employee name does not produce a usable slug")
		return
	}

	employee := &directory.Employee{
		ID:           ids.New(),
		CompanyID:    company.ID,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        auth.NormalizeEmail(req.Email),
		Position:     strings.TrimSpace(req.Position),
		DepartmentID: strings.TrimSpace(req.DepartmentID),
		Active:       true,
	}
	if req.CreateAccount {
		user, err := a.auth.Provision(r.Context(), auth.NewAccount{
			Email:      req.Email,
			Role:       authz.RoleEmployee,
			CompanyID:  company.ID,
			EmployeeID: employee.ID,
		})
		if err != nil {
			if errors.Is(err, directory.ErrConflict) {
				writeError(w, r, http.StatusConflict, "email is already registered")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "account provisioning failed")
			return
		}
		employee.UserID = user.ID
	}

	// Slugs are per company; a name collision gets a random suffix instead
	// of an error.
	slug := base
	for attempt := 0; ; attempt++ {
		employee.Slug = slug
		err := a.employees.Create(r.Context(), employee)
		if err == nil {
			break
		}
		if !errors.Is(err, directory.ErrConflict) || attempt >= 2 {
			handleStoreError(w, r, err)
			return
		}
		slug = base + "-" + ids.NewSuffix(2)
	}

	_ = audit.LogEvent(r.Context(), "employee.created", map[string]any{
		"employee_id": employee.ID,
		"slug":        employee.Slug,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/companies/%s/employees/%s", company.Slug, employee.Slug))
	writeJSON(w, http.StatusCreated, employee)
}

func (a *API) getEmployee(w http.ResponseWriter, r *http.Request, principal *authz.Principal, company *directory.Company, slug string) {
	employee, d, err := a.resolver.ResolveEmployee(r.Context(), principal, company, slug)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "operation failed")
		return
	}
	if !d.Allowed {
		writeDecision(w, r, r.URL.Path, d)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

func (a *API) handleCompanyDepartments(w http.ResponseWriter, r *http.Request, principal *authz.Principal, company *directory.Company) {
	switch r.Method {
	case http.MethodGet:
		d := a.guard.Authorize(principal, authz.Requirement{
			Roles:        authz.AllRoles(),
			TenantScoped: true,
			Resource:     &authz.ResourceRef{CompanyID: company.ID},
		})
		if !d.Allowed {
			writeDecision(w, r, r.URL.Path, d)
			return
		}
		departments, err := a.departments.ListByCompany(r.Context(), company.ID)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "operation failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": departments,
		})
	case http.MethodPost:
		d := a.guard.Authorize(principal, authz.Requirement{
			Roles:        authz.Roles(authz.RoleRoot, authz.RoleAdmin),
			TenantScoped: true,
			Resource:     &authz.ResourceRef{CompanyID: company.ID},
		})
		if !d.Allowed {
			writeDecision(w, r, r.URL.Path, d)
			return
		}
		var req createDepartmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, r, http.StatusBadRequest, "name is required")
			return
		}
		department := &directory.Department{
			ID:        ids.New(),
			CompanyID: company.ID,
			Name:      strings.TrimSpace(req.Name),
		}
		if err := a.departments.Create(r.Context(), department); err != nil {
			handleStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, department)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func principalOrNil(r *http.Request) *authz.Principal {
	if p, ok := authz.PrincipalFromContext(r.Context()); ok {
		return &p
	}
	return nil
}
