package authz

import "context"

type principalContextKey struct{}
type companyContextKey struct{}

// CompanyContext is the immutable tenant context resolved once per request
// from the path slug and consumed by all downstream handlers.
type CompanyContext struct {
	ID   string
	Slug string
}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}

// ContextWithCompany stores the resolved tenant context.
func ContextWithCompany(ctx context.Context, company CompanyContext) context.Context {
	return context.WithValue(ctx, companyContextKey{}, &company)
}

// CompanyFromContext returns the tenant context resolved for this request.
func CompanyFromContext(ctx context.Context) (CompanyContext, bool) {
	if ctx == nil {
		return CompanyContext{}, false
	}
	v, ok := ctx.Value(companyContextKey{}).(*CompanyContext)
	if !ok || v == nil {
		return CompanyContext{}, false
	}
	return *v, true
}
