package httpapi

import (
	"context"
	"net/http"
	"time"

	"hrcore.io/internal/auth"
	"hrcore.io/internal/authz"
	"hrcore.io/internal/directory"
	"hrcore.io/internal/docs"
	"hrcore.io/internal/obs"
)

// ReadyProbe reports whether downstream dependencies answer.
type ReadyProbe struct {
	Check func(ctx context.Context) error
}

func (rp ReadyProbe) check(ctx context.Context) error {
	if rp.Check == nil {
		return nil
	}
	return rp.Check(ctx)
}

// Deps collects everything the HTTP layer needs.
type Deps struct {
	Ready       ReadyProbe
	Version     string
	Auth        *auth.Service
	Guard       *authz.Guard
	Resolver    *authz.Resolver
	Docs        *docs.Controller
	Companies   directory.CompanyStore
	Employees   directory.EmployeeStore
	Departments directory.DepartmentStore
	RateBurst   int
	RatePerSec  float64
	MaxBody     int64
	CORSOrigins []string
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	readyProbe  ReadyProbe
	version     string
	auth        *auth.Service
	guard       *authz.Guard
	resolver    *authz.Resolver
	docs        *docs.Controller
	companies   directory.CompanyStore
	employees   directory.EmployeeStore
	departments directory.DepartmentStore
	rateBurst   int
	ratePerSec  float64
	maxBody     int64
	corsOrigins []string
}

func New(d Deps) *API {
	a := &API{
		mux:         http.NewServeMux(),
		readyProbe:  d.Ready,
		version:     d.Version,
		auth:        d.Auth,
		guard:       d.Guard,
		resolver:    d.Resolver,
		docs:        d.Docs,
		companies:   d.Companies,
		employees:   d.Employees,
		departments: d.Departments,
		rateBurst:   d.RateBurst,
		ratePerSec:  d.RatePerSec,
		maxBody:     d.MaxBody,
		corsOrigins: d.CORSOrigins,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}
	if a.maxBody <= 0 {
		a.maxBody = 20 << 20
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// session and credential lifecycle
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/forgot", a.handleForgotPassword)
	a.mux.HandleFunc("/v1/auth/reset", a.handleResetPassword)
	a.mux.HandleFunc("/v1/auth/password", a.handleChangePassword)

	// tenants and everything under them
	a.mux.HandleFunc("/v1/companies", a.handleCompaniesCollection)
	a.mux.HandleFunc("/v1/companies/", a.handleCompanyScoped)

	// Employees are only addressable beneath a company slug. Root included:
	// there is no implicit tenant to fall back to.
	a.mux.HandleFunc("/v1/employees", a.handleEmployeesWithoutCompany)
	a.mux.HandleFunc("/v1/employees/", a.handleEmployeesWithoutCompany)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBody)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "hrcore-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) handleEmployeesWithoutCompany(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusBadRequest, "company slug is required")
}
