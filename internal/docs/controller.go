package docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"hrcore.io/internal/audit"
	"hrcore.io/internal/authz"
	"hrcore.io/internal/directory"
	"hrcore.io/internal/ids"
)

// Upload describes an incoming file. The file name is display metadata only;
// it never influences where or under what name the bytes land, apart from a
// sanitized extension.
type Upload struct {
	FileName    string
	ContentType string
	Category    string
	Body        io.Reader
}

// Controller enforces tenant and ownership rules around document metadata and
// bytes. The employee tier uploads to its own record regardless of what the
// request names, and reads only its own documents.
type Controller struct {
	guard     *authz.Guard
	employees directory.EmployeeStore
	documents directory.DocumentStore
	storage   *Storage
	now       func() time.Time
}

// ControllerOption configures Controller behavior.
type ControllerOption func(*Controller)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ControllerOption {
	return func(c *Controller) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewController constructs a Controller.
func NewController(guard *authz.Guard, employees directory.EmployeeStore, documents directory.DocumentStore, storage *Storage, opts ...ControllerOption) (*Controller, error) {
	if guard == nil {
		return nil, errors.New("docs: guard is required")
	}
	if employees == nil || documents == nil {
		return nil, errors.New("docs: employee and document stores are required")
	}
	if storage == nil {
		return nil, errors.New("docs: storage is required")
	}
	c := &Controller{
		guard:     guard,
		employees: employees,
		documents: documents,
		storage:   storage,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Upload stores a document for an employee of the given company. targetSlug
// selects the employee for the manager tier and above; the employee tier's
// target is always its own record, so a tampered slug changes nothing.
// Denials carry the internal reason; transports respond via Decision.External.
func (c *Controller) Upload(ctx context.Context, principal *authz.Principal, company *directory.Company, targetSlug string, up Upload) (*directory.Document, authz.Decision, error) {
	if company == nil {
		return nil, authz.Deny(authz.ReasonNotFound), nil
	}
	target, d, err := c.uploadTarget(ctx, principal, company, targetSlug)
	if err != nil || !d.Allowed {
		return nil, d, err
	}
	if strings.TrimSpace(up.FileName) == "" || up.Body == nil {
		return nil, authz.Allow(), fmt.Errorf("%w: file name and body are required", directory.ErrInvalidInput)
	}

	docID := ids.New()
	storedName := storedNameFor(docID, up.FileName)
	size, err := c.storage.Save(company.ID, storedName, up.Body)
	if err != nil {
		return nil, authz.Allow(), err
	}

	doc := &directory.Document{
		ID:          docID,
		CompanyID:   company.ID,
		EmployeeID:  target.ID,
		Category:    strings.TrimSpace(up.Category),
		FileName:    filepath.Base(up.FileName),
		StoredName:  storedName,
		ContentType: up.ContentType,
		SizeBytes:   size,
		UploadedBy:  principal.ID,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.documents.Create(ctx, doc); err != nil {
		_ = c.storage.Remove(company.ID, storedName)
		return nil, authz.Allow(), err
	}
	_ = audit.LogEvent(ctx, "docs.uploaded", map[string]any{
		"document_id": doc.ID,
		"employee_id": doc.EmployeeID,
		"size_bytes":  doc.SizeBytes,
	})
	return doc, authz.Allow(), nil
}

// Open authorizes a download and returns the document with its byte stream.
// The document must live under the addressed company; absence, cross-tenant
// ids and other owners' documents are indistinguishable after External.
func (c *Controller) Open(ctx context.Context, principal *authz.Principal, company *directory.Company, docID string) (*directory.Document, io.ReadCloser, authz.Decision, error) {
	if company == nil {
		return nil, nil, authz.Deny(authz.ReasonNotFound), nil
	}
	doc, err := c.documents.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			// Run the guard anyway so the work done for absent and
			// forbidden ids stays comparable.
			c.guard.Authorize(principal, authz.Requirement{Roles: authz.AllRoles(), TenantScoped: true})
			return nil, nil, authz.Deny(authz.ReasonNotFound), nil
		}
		return nil, nil, authz.Deny(authz.ReasonNotFound), err
	}
	if doc.CompanyID != company.ID {
		// Ids are addressed under a company path; a mismatch stays internal
		// as tenant_mismatch and external as not_found, even for root.
		return nil, nil, authz.Deny(authz.ReasonTenantMismatch), nil
	}

	d, err := c.authorizeDocument(ctx, principal, doc)
	if err != nil || !d.Allowed {
		return nil, nil, d, err
	}

	rc, err := c.storage.Open(doc.CompanyID, doc.StoredName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, authz.Deny(authz.ReasonNotFound), nil
		}
		return nil, nil, authz.Deny(authz.ReasonNotFound), err
	}
	return doc, rc, authz.Allow(), nil
}

// List returns the document metadata for one employee. The employee argument
// must already be resolved within the company; the ownership gate still runs
// here so the controller does not depend on the caller having applied it.
func (c *Controller) List(ctx context.Context, principal *authz.Principal, company *directory.Company, employee *directory.Employee) ([]*directory.Document, authz.Decision, error) {
	if company == nil || employee == nil || employee.CompanyID != company.ID {
		return nil, authz.Deny(authz.ReasonNotFound), nil
	}
	d := c.guard.Authorize(principal, authz.Requirement{
		Roles:        authz.AllRoles(),
		TenantScoped: true,
		Resource: &authz.ResourceRef{
			CompanyID:   employee.CompanyID,
			OwnerUserID: employee.UserID,
			OwnerOnly:   true,
		},
	})
	if !d.Allowed {
		return nil, d, nil
	}
	docs, err := c.documents.ListByEmployee(ctx, employee.ID)
	if err != nil {
		return nil, authz.Allow(), err
	}
	return docs, authz.Allow(), nil
}

// uploadTarget resolves the employee record the upload attaches to and runs
// the gate chain against it.
func (c *Controller) uploadTarget(ctx context.Context, principal *authz.Principal, company *directory.Company, targetSlug string) (*directory.Employee, authz.Decision, error) {
	var (
		target *directory.Employee
		err    error
	)
	if principal != nil && principal.Role == authz.RoleEmployee {
		// The request-supplied target is ignored, not rejected: overriding
		// it keeps a tampered request from becoming a probe.
		if principal.EmployeeID == "" {
			return nil, authz.Deny(authz.ReasonOwnershipMismatch), nil
		}
		target, err = c.employees.FindByID(ctx, principal.EmployeeID)
	} else {
		if verr := directory.ValidateSlug(targetSlug); verr != nil {
			return nil, authz.Deny(authz.ReasonNotFound), nil
		}
		target, err = c.employees.FindBySlug(ctx, company.ID, targetSlug)
	}
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			c.guard.Authorize(principal, authz.Requirement{Roles: authz.AllRoles(), TenantScoped: true})
			return nil, authz.Deny(authz.ReasonNotFound), nil
		}
		return nil, authz.Deny(authz.ReasonNotFound), err
	}
	if target.CompanyID != company.ID {
		return nil, authz.Deny(authz.ReasonTenantMismatch), nil
	}

	d := c.guard.Authorize(principal, authz.Requirement{
		Roles:        authz.AllRoles(),
		TenantScoped: true,
		Resource: &authz.ResourceRef{
			CompanyID:   target.CompanyID,
			OwnerUserID: target.UserID,
			OwnerOnly:   true,
		},
	})
	if !d.Allowed {
		return nil, d, nil
	}
	return target, authz.Allow(), nil
}

// authorizeDocument runs the tenant and ownership gates for a document by
// resolving the owning employee's backing user.
func (c *Controller) authorizeDocument(ctx context.Context, principal *authz.Principal, doc *directory.Document) (authz.Decision, error) {
	owner, err := c.employees.FindByID(ctx, doc.EmployeeID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return authz.Deny(authz.ReasonNotFound), nil
		}
		return authz.Deny(authz.ReasonNotFound), err
	}
	return c.guard.Authorize(principal, authz.Requirement{
		Roles:        authz.AllRoles(),
		TenantScoped: true,
		Resource: &authz.ResourceRef{
			CompanyID:   doc.CompanyID,
			OwnerUserID: owner.UserID,
			OwnerOnly:   true,
		},
	}), nil
}

var storedExt = regexp.MustCompile(`^\.[a-z0-9]{1,9}$`)

// storedNameFor derives the on-disk name from the generated document id and a
// random suffix. Caller input contributes nothing but a sanitized extension.
func storedNameFor(docID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if !storedExt.MatchString(ext) {
		ext = ""
	}
	return docID + "-" + ids.NewSuffix(8) + ext
}
