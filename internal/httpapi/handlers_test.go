package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hrcore.io/internal/auth"
	"hrcore.io/internal/authz"
	"hrcore.io/internal/credential"
	"hrcore.io/internal/directory"
	"hrcore.io/internal/docs"
)

const seedPassword = "Str0ng-enough!"

var cheapParams = credential.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type testEnv struct {
	t         *testing.T
	handler   http.Handler
	users     *memUsers
	companies *memCompanies
	employees *memEmployees
	documents *memDocuments
	creds     *credential.Service
	authSvc   *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		t:         t,
		users:     newMemUsers(),
		companies: newMemCompanies(),
		employees: newMemEmployees(),
		documents: newMemDocuments(),
	}
	env.creds = credential.NewService(credential.WithParams(cheapParams))
	authSvc, err := auth.NewService(env.users, env.creds, "test-secret")
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	env.authSvc = authSvc

	guard := authz.NewGuard()
	resolver, err := authz.NewResolver(guard, env.companies, env.employees)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	storage, err := docs.NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	controller, err := docs.NewController(guard, env.employees, env.documents, storage)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	departments := newMemDepartments()
	api := New(Deps{
		Version:     "test",
		Auth:        authSvc,
		Guard:       guard,
		Resolver:    resolver,
		Docs:        controller,
		Companies:   env.companies,
		Employees:   env.employees,
		Departments: departments,
		RateBurst:   10000,
		RatePerSec:  10000,
	})
	env.handler = api.Handler()
	return env
}

func (e *testEnv) seedUser(email string, role authz.Role, companyID, employeeID string) *auth.User {
	e.t.Helper()
	hash, err := e.creds.Hash(context.Background(), seedPassword)
	if err != nil {
		e.t.Fatalf("hash: %v", err)
	}
	user := &auth.User{
		ID:           "u-" + email,
		Email:        email,
		Role:         role,
		CompanyID:    companyID,
		EmployeeID:   employeeID,
		Active:       true,
		PasswordHash: hash,
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		e.t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *testEnv) seedCompany(id, slug, name string) {
	e.t.Helper()
	if err := e.companies.Create(context.Background(), &directory.Company{
		ID: id, Slug: slug, Name: name, Active: true,
	}); err != nil {
		e.t.Fatalf("seed company: %v", err)
	}
}

func (e *testEnv) seedEmployee(id, companyID, userID, slug string) {
	e.t.Helper()
	if err := e.employees.Create(context.Background(), &directory.Employee{
		ID: id, CompanyID: companyID, UserID: userID, Slug: slug,
		FirstName: strings.Split(slug, "-")[0], LastName: "Test",
		Email: slug + "@test", Active: true,
	}); err != nil {
		e.t.Fatalf("seed employee: %v", err)
	}
}

// seedTwoTenants builds the standard scene: acme with admin, manager and two
// employees, globex with one employee.
func (e *testEnv) seedTwoTenants() {
	e.seedCompany("co-acme", "acme", "Acme GmbH")
	e.seedCompany("co-globex", "globex", "Globex AG")
	e.seedUser("root@hrcore.test", authz.RoleRoot, "", "")
	e.seedUser("admin@acme.test", authz.RoleAdmin, "co-acme", "")
	e.seedUser("mgr@acme.test", authz.RoleManager, "co-acme", "")
	alice := e.seedUser("alice@acme.test", authz.RoleEmployee, "co-acme", "emp-alice")
	bob := e.seedUser("bob@acme.test", authz.RoleEmployee, "co-acme", "emp-bob")
	carol := e.seedUser("carol@globex.test", authz.RoleEmployee, "co-globex", "emp-carol")
	e.seedEmployee("emp-alice", "co-acme", alice.ID, "alice-test")
	e.seedEmployee("emp-bob", "co-acme", bob.ID, "bob-test")
	e.seedEmployee("emp-carol", "co-globex", carol.ID, "carol-test")
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) login(email string) string {
	e.t.Helper()
	rr := e.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": email, "password": seedPassword,
	})
	if rr.Code != http.StatusOK {
		e.t.Fatalf("login %s: status %d body %s", email, rr.Code, rr.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		e.t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func errorField(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	msg, _ := body["error"].(string)
	return msg
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()

	rr := env.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "alice@acme.test", "password": "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if errorField(t, rr) != "invalid credentials" {
		t.Fatalf("unexpected error %q", errorField(t, rr))
	}

	token := env.login("alice@acme.test")
	if token == "" {
		t.Fatal("expected token")
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()

	rr := env.do(http.MethodGet, "/v1/companies/acme", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	rr = env.do(http.MethodGet, "/v1/companies/acme", "garbage-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rr.Code)
	}
}

func TestCompanySlugUniformDenial(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()
	token := env.login("admin@acme.test")

	foreign := env.do(http.MethodGet, "/v1/companies/globex", token, nil)
	absent := env.do(http.MethodGet, "/v1/companies/no-such-tenant", token, nil)

	if foreign.Code != http.StatusNotFound || absent.Code != http.StatusNotFound {
		t.Fatalf("expected 404/404, got %d/%d", foreign.Code, absent.Code)
	}
	if errorField(t, foreign) != errorField(t, absent) {
		t.Fatalf("bodies differ: %q vs %q", errorField(t, foreign), errorField(t, absent))
	}

	// Members of the tenant resolve it normally.
	own := env.do(http.MethodGet, "/v1/companies/acme", token, nil)
	if own.Code != http.StatusOK {
		t.Fatalf("expected 200 for own tenant, got %d", own.Code)
	}
}

func TestRootEmployeesWithoutCompanySelector(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()
	token := env.login("root@hrcore.test")

	rr := env.do(http.MethodGet, "/v1/employees", token, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	// With a tenant selector the same principal succeeds.
	rr = env.do(http.MethodGet, "/v1/companies/acme/employees", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rr.Code, rr.Body.String())
	}
}

func TestCreateCompanyRootOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()

	adminToken := env.login("admin@acme.test")
	rr := env.do(http.MethodPost, "/v1/companies", adminToken, map[string]string{"name": "Initech"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin, got %d", rr.Code)
	}

	rootToken := env.login("root@hrcore.test")
	rr = env.do(http.MethodPost, "/v1/companies", rootToken, map[string]string{
		"name": "Initech", "admin_email": "boss@initech.test",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/v1/companies/initech" {
		t.Fatalf("unexpected location %q", loc)
	}

	// The slug stays reserved.
	rr = env.do(http.MethodPost, "/v1/companies", rootToken, map[string]string{"name": "Initech"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestEmployeeSelfAccessOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()
	aliceToken := env.login("alice@acme.test")

	own := env.do(http.MethodGet, "/v1/companies/acme/employees/alice-test", aliceToken, nil)
	if own.Code != http.StatusOK {
		t.Fatalf("expected 200 for own record, got %d body %s", own.Code, own.Body.String())
	}

	colleague := env.do(http.MethodGet, "/v1/companies/acme/employees/bob-test", aliceToken, nil)
	absent := env.do(http.MethodGet, "/v1/companies/acme/employees/nobody-here", aliceToken, nil)
	if colleague.Code != http.StatusNotFound || absent.Code != http.StatusNotFound {
		t.Fatalf("expected uniform 404, got %d/%d", colleague.Code, absent.Code)
	}
	if errorField(t, colleague) != errorField(t, absent) {
		t.Fatal("colleague and absent responses must match")
	}

	mgrToken := env.login("mgr@acme.test")
	rr := env.do(http.MethodGet, "/v1/companies/acme/employees/bob-test", mgrToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("manager should read colleague record, got %d", rr.Code)
	}
}

func TestEmployeeRosterForbiddenForEmployeeTier(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()
	token := env.login("alice@acme.test")

	rr := env.do(http.MethodGet, "/v1/companies/acme/employees", token, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func multipartUpload(t *testing.T, fieldName, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(fieldName, fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(token, path, fileName, content string) *httptest.ResponseRecorder {
	e.t.Helper()
	body, contentType := multipartUpload(e.t, "file", fileName, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func TestUploadTamperedTargetLandsOnSelf(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()
	aliceToken := env.login("alice@acme.test")

	// Alice posts to bob's documents path; the stored document still belongs
	// to alice.
	rr := env.upload(aliceToken, "/v1/companies/acme/employees/bob-test/documents", "cv.pdf", "pdf bytes")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", rr.Code, rr.Body.String())
	}
	var doc directory.Document
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.EmployeeID != "emp-alice" {
		t.Fatalf("expected emp-alice, got %s", doc.EmployeeID)
	}
}

func TestDownloadCrossTenantUniform(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()

	carolToken := env.login("carol@globex.test")
	rr := env.upload(carolToken, "/v1/companies/globex/employees/carol-test/documents", "payslip.pdf", "secret")
	if rr.Code != http.StatusCreated {
		t.Fatalf("seed upload: %d %s", rr.Code, rr.Body.String())
	}
	var doc directory.Document
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}

	adminToken := env.login("admin@acme.test")
	foreign := env.do(http.MethodGet, "/v1/companies/acme/documents/"+doc.ID, adminToken, nil)
	absent := env.do(http.MethodGet, "/v1/companies/acme/documents/no-such-doc", adminToken, nil)
	if foreign.Code != http.StatusNotFound || absent.Code != http.StatusNotFound {
		t.Fatalf("expected uniform 404, got %d/%d", foreign.Code, absent.Code)
	}
	if errorField(t, foreign) != errorField(t, absent) {
		t.Fatal("foreign and absent documents must answer identically")
	}

	// The owner downloads through her own tenant path.
	own := env.do(http.MethodGet, "/v1/companies/globex/documents/"+doc.ID, carolToken, nil)
	if own.Code != http.StatusOK || own.Body.String() != "secret" {
		t.Fatalf("owner download failed: %d %q", own.Code, own.Body.String())
	}
}

func TestForgotPasswordUniformResponse(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()

	known := env.do(http.MethodPost, "/v1/auth/forgot", "", map[string]string{"email": "alice@acme.test"})
	unknown := env.do(http.MethodPost, "/v1/auth/forgot", "", map[string]string{"email": "ghost@acme.test"})

	if known.Code != http.StatusAccepted || unknown.Code != http.StatusAccepted {
		t.Fatalf("expected 202/202, got %d/%d", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Fatalf("bodies differ: %s vs %s", known.Body.String(), unknown.Body.String())
	}
}

func TestChangePasswordRejectsWeak(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()
	token := env.login("alice@acme.test")

	rr := env.do(http.MethodPost, "/v1/auth/password", token, map[string]string{
		"current_password": seedPassword,
		"new_password":     "short1",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var body struct {
		Violations []string `json:"violations"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Violations) < 2 {
		t.Fatalf("expected multiple violations, got %v", body.Violations)
	}
}

func TestCreateEmployeeProvisioning(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()
	adminToken := env.login("admin@acme.test")

	rr := env.do(http.MethodPost, "/v1/companies/acme/employees", adminToken, map[string]any{
		"first_name":     "Dana",
		"last_name":      "Miller",
		"email":          "dana@acme.test",
		"create_account": true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", rr.Code, rr.Body.String())
	}
	var employee directory.Employee
	if err := json.Unmarshal(rr.Body.Bytes(), &employee); err != nil {
		t.Fatalf("decode employee: %v", err)
	}
	if employee.Slug != "dana-miller" || employee.UserID == "" {
		t.Fatalf("unexpected employee: %+v", employee)
	}

	// The backing account exists and is bound to the record.
	user, err := env.users.FindByID(context.Background(), employee.UserID)
	if err != nil || user.EmployeeID != employee.ID || !user.MustChangePassword {
		t.Fatalf("unexpected backing user %+v err %v", user, err)
	}

	// The manager tier cannot create records.
	mgrToken := env.login("mgr@acme.test")
	rr = env.do(http.MethodPost, "/v1/companies/acme/employees", mgrToken, map[string]any{
		"first_name": "Eve", "last_name": "Adams", "email": "eve@acme.test",
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager, got %d", rr.Code)
	}
}

func TestDepartments(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()
	adminToken := env.login("admin@acme.test")

	rr := env.do(http.MethodPost, "/v1/companies/acme/departments", adminToken, map[string]string{"name": "Engineering"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", rr.Code, rr.Body.String())
	}

	aliceToken := env.login("alice@acme.test")
	rr = env.do(http.MethodGet, "/v1/companies/acme/departments", aliceToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		Items []directory.Department `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Name != "Engineering" {
		t.Fatalf("unexpected departments: %+v", body.Items)
	}

	rr = env.do(http.MethodPost, "/v1/companies/acme/departments", aliceToken, map[string]string{"name": "Shadow"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee, got %d", rr.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rr.Code)
	}
	rr = env.do(http.MethodGet, "/readyz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rr.Code)
	}
}

func TestLockedAccountLoginSurfacesRetryAfter(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()

	for i := 0; i < 5; i++ {
		rr := env.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email": "bob@acme.test", "password": "wrong",
		})
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, rr.Code)
		}
	}

	rr := env.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "bob@acme.test", "password": seedPassword,
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 while locked, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoTenants()
	token := env.login("root@hrcore.test")

	rr := env.do(http.MethodGet, fmt.Sprintf("/v1/companies/acme/%s", "payroll"), token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
