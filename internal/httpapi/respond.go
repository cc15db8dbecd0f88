package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"hrcore.io/internal/audit"
	"hrcore.io/internal/authz"
	"hrcore.io/internal/directory"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// writeDecision converts a denial into the HTTP response. The internal reason
// goes to the audit log only; the body is built from Decision.External, so
// absent, cross-tenant and foreign-owned resources answer identically.
func writeDecision(w http.ResponseWriter, r *http.Request, route string, d authz.Decision) {
	audit.LogDecision(r.Context(), route, d)
	ext := d.External()
	switch ext.Reason {
	case authz.ReasonUnauthenticated:
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	case authz.ReasonAccountInactive:
		writeError(w, r, http.StatusForbidden, "account is inactive")
	case authz.ReasonAccountLocked:
		if ext.Retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(ext.Retry.Seconds())+1))
		}
		writeError(w, r, http.StatusForbidden, "account is temporarily locked")
	case authz.ReasonInsufficientRole:
		writeError(w, r, http.StatusForbidden, "insufficient role")
	case authz.ReasonNoTenantContext:
		writeError(w, r, http.StatusBadRequest, "company slug is required")
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrConflict):
		writeError(w, r, http.StatusConflict, "already exists")
	case errors.Is(err, directory.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "operation failed")
	}
}
