package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"hrcore.io/internal/authz"
	"hrcore.io/internal/directory"
	"hrcore.io/internal/docs"
)

const maxUploadMemory = 4 << 20

// uploadDocument accepts a multipart form with a "file" part and an optional
// "category" field. The slug in the path names the target employee for the
// manager tier and above; the controller overrides it for the employee tier.
func (a *API) uploadDocument(w http.ResponseWriter, r *http.Request, principal *authz.Principal, company *directory.Company, employeeSlug string) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, r, http.StatusBadRequest, "multipart form is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	doc, d, err := a.docs.Upload(r.Context(), principal, company, employeeSlug, docs.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Category:    r.FormValue("category"),
		Body:        file,
	})
	if !d.Allowed {
		writeDecision(w, r, r.URL.Path, d)
		return
	}
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/companies/%s/documents/%s", company.Slug, doc.ID))
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) listEmployeeDocuments(w http.ResponseWriter, r *http.Request, principal *authz.Principal, company *directory.Company, employeeSlug string) {
	employee, d, err := a.resolver.ResolveEmployee(r.Context(), principal, company, employeeSlug)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "operation failed")
		return
	}
	if !d.Allowed {
		writeDecision(w, r, r.URL.Path, d)
		return
	}
	items, d, err := a.docs.List(r.Context(), principal, company, employee)
	if !d.Allowed {
		writeDecision(w, r, r.URL.Path, d)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "operation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

func (a *API) downloadDocument(w http.ResponseWriter, r *http.Request, principal *authz.Principal, company *directory.Company, docID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	doc, rc, d, err := a.docs.Open(r.Context(), principal, company, docID)
	if !d.Allowed {
		writeDecision(w, r, r.URL.Path, d)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "operation failed")
		return
	}
	defer rc.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(doc.FileName)))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", doc.SizeBytes))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "document"
	}
	return name
}
