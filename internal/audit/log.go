package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"hrcore.io/internal/authz"
	"hrcore.io/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the audit request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request and actor context.
// Raw secrets (passwords, reset tokens) must never appear in fields.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if principal, ok := authz.PrincipalFromContext(ctx); ok {
		entry["actor_id"] = principal.ID
		entry["actor_role"] = string(principal.Role)
		if principal.CompanyID != "" {
			entry["actor_company_id"] = principal.CompanyID
		}
	}
	if len(fields) > 0 {
		copyFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copyFields[k] = v
		}
		entry["fields"] = copyFields
	} else {
		entry["fields"] = map[string]any{}
	}
	obs.Emit(entry)
	return nil
}

// LogDecision records a denied authorization outcome with its internal
// reason. This is the only place denial reasons are persisted; external
// responses go through Decision.External.
func LogDecision(ctx context.Context, route string, d authz.Decision) {
	if d.Allowed {
		return
	}
	_ = LogEvent(ctx, "authz.denied", map[string]any{
		"route":  route,
		"reason": string(d.Reason),
	})
}
