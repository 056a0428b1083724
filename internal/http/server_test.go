package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"zombiefinance/internal/auth"
	"zombiefinance/internal/ledger"
	"zombiefinance/internal/metrics"
	"zombiefinance/internal/persist"
	"zombiefinance/internal/storage/memory"
)

// flakyKV fails writes while failSet is true.
type flakyKV struct {
	*memory.Store
	failSet bool
}

func (f *flakyKV) Set(ctx context.Context, k, v string) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, k, v)
}

type fakeAuth struct {
	session *auth.Session
	err     error
}

func (f *fakeAuth) SignInWithPassword(_ context.Context, email, password string) (*auth.Session, error) {
	if email == "" || password == "" {
		return nil, auth.ErrMissingCredentials
	}
	if f.err != nil {
		return nil, f.err
	}
	s := *f.session
	return &s, nil
}

func (f *fakeAuth) SignUp(_ context.Context, email, _ string) (*auth.Session, error) {
	return &auth.Session{User: auth.User{ID: "new", Email: email}}, nil
}

func (f *fakeAuth) SignOut(context.Context, string) error { return nil }

func newTestServer(t *testing.T, mutate func(*Options)) (*Server, *flakyKV) {
	t.Helper()
	kv := &flakyKV{Store: memory.New()}
	opts := Options{
		Ledger:         ledger.NewStore(persist.New(kv)),
		MetricsEnabled: true,
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, kv
}

func do(t *testing.T, srv *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func doJSON(t *testing.T, srv *Server, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func summaryOf(t *testing.T, srv *Server) summaryResponse {
	t.Helper()
	rr := do(t, srv, http.MethodGet, "/api/summary", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got summaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return got
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	down, _ := newTestServer(t, func(o *Options) {
		o.Ready = func(context.Context) error { return errors.New("db closed") }
	})
	if rr := do(t, down, http.MethodGet, "/readyz", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
}

func TestNewServerRequiresLedger(t *testing.T) {
	if _, err := NewServer(Options{}); err == nil {
		t.Fatal("expected error without ledger store")
	}
}

func TestIndexShowsLoginWithoutSession(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rr := do(t, srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "LOGIN") {
		t.Fatalf("index body missing login form")
	}
}

func TestLedgerFlow(t *testing.T) {
	srv, kv := newTestServer(t, nil)

	steps := []struct {
		method, target string
		form           url.Values
		location       string
	}{
		{http.MethodPost, "/login", url.Values{"username": {"  alice "}}, "/"},
		{http.MethodPost, "/screen/addIncome", nil, "/"},
		{http.MethodPost, "/income", url.Values{"amount": {"500"}}, "/"},
		{http.MethodPost, "/screen/addExpense", nil, "/"},
		{http.MethodPost, "/expenses/food", url.Values{"amount": {"120"}}, "/?added=comida"},
		{http.MethodPost, "/expenses/transporte", url.Values{"amount": {"30,00"}}, "/?added=transporte"},
		{http.MethodPost, "/screen/home", nil, "/"},
	}
	for _, st := range steps {
		rr := do(t, srv, st.method, st.target, st.form)
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("%s %s status=%d body=%s", st.method, st.target, rr.Code, rr.Body.String())
		}
		if loc := rr.Header().Get("Location"); loc != st.location {
			t.Fatalf("%s Location=%q, want %q", st.target, loc, st.location)
		}
	}

	got := summaryOf(t, srv)
	if got.Username != "alice" || got.TotalIncome != 500 || got.TotalExpenses != 150 || got.Balance != 350 {
		t.Fatalf("unexpected summary %+v", got)
	}
	if got.Mood.Tier != "Flush" || got.Screen != "home" || got.TransactionCount != 3 {
		t.Fatalf("unexpected mood/screen/count %+v", got)
	}
	if len(got.ByCategory) != 2 || got.ByCategory[0].ID != "comida" || got.ByCategory[1].Amount != 30 {
		t.Fatalf("unexpected breakdown %+v", got.ByCategory)
	}

	body := do(t, srv, http.MethodGet, "/", nil).Body.String()
	for _, want := range []string{"ZOMBIE.FINANCE.EXE", "alice", "500.00 S/", "150.00 S/", "350.00 S/", "RICH ZOMBIE!", "width: 80%"} {
		if !strings.Contains(body, want) {
			t.Errorf("home page missing %q", want)
		}
	}

	if _, err := kv.Get(context.Background(), "zombieFinance_alice"); err != nil {
		t.Fatalf("ledger not persisted: %v", err)
	}
}

func TestAddedNoticeOnExpenseScreen(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	do(t, srv, http.MethodPost, "/login", url.Values{"username": {"alice"}})
	do(t, srv, http.MethodPost, "/screen/addExpense", nil)

	body := do(t, srv, http.MethodGet, "/?added=ocio", nil).Body.String()
	if !strings.Contains(body, "Gasto agregado: Ocio") {
		t.Fatalf("expense screen missing notice")
	}
	if !strings.Contains(body, `action="/expenses/transporte"`) {
		t.Fatalf("expense screen missing category rows")
	}
}

func TestRejectedInputRendersError(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name   string
		login  bool
		target string
		form   url.Values
		want   string
	}{
		{"income without session", false, "/income", url.Values{"amount": {"10"}}, msgNoSession},
		{"empty username", false, "/login", url.Values{"username": {"   "}}, msgEmptyUsername},
		{"non numeric amount", true, "/income", url.Values{"amount": {"abc"}}, msgInvalidAmount},
		{"negative amount", true, "/income", url.Values{"amount": {"-5"}}, msgInvalidAmount},
		{"unknown category", true, "/expenses/electricity", url.Values{"amount": {"5"}}, msgUnknownCategory},
		{"invalid screen", true, "/screen/settings", nil, msgInvalidScreen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			do(t, srv, http.MethodPost, "/logout", nil)
			if tt.login {
				do(t, srv, http.MethodPost, "/login", url.Values{"username": {"bob"}})
			}
			rr := do(t, srv, http.MethodPost, tt.target, tt.form)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status=%d, want 422", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Fatalf("body missing %q", tt.want)
			}
		})
	}

	if got := summaryOf(t, srv); got.TransactionCount != 0 {
		t.Fatalf("rejected input changed the ledger: %+v", got)
	}
}

func TestSummaryRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	if rr := do(t, srv, http.MethodGet, "/api/summary", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rr.Code)
	}
}

func TestJSONBodies(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := doJSON(t, srv, "/login", `{"username":"carol"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, srv, "/income", `{"amount": 12.5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("income status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got summaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Username != "carol" || got.TotalIncome != 12.5 {
		t.Fatalf("unexpected summary %+v", got)
	}

	rr = doJSON(t, srv, "/expenses/comida", `{"amount": 0}`)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "error") {
		t.Fatalf("zero expense status=%d body=%s", rr.Code, rr.Body.String())
	}

	if rr := doJSON(t, srv, "/income", `{"amount": `); rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed json status=%d, want 400", rr.Code)
	}
}

func TestPersistFailureRollsBack(t *testing.T) {
	srv, kv := newTestServer(t, nil)
	do(t, srv, http.MethodPost, "/login", url.Values{"username": {"dave"}})

	kv.failSet = true
	rr := do(t, srv, http.MethodPost, "/income", url.Values{"amount": {"10"}})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), msgSaveFailed) {
		t.Fatalf("body missing save failure message")
	}
	if got := summaryOf(t, srv); got.TotalIncome != 0 || got.TransactionCount != 0 {
		t.Fatalf("failed save left state behind: %+v", got)
	}
}

func TestLogoutKeepsStorage(t *testing.T) {
	srv, kv := newTestServer(t, nil)
	do(t, srv, http.MethodPost, "/login", url.Values{"username": {"erin"}})
	do(t, srv, http.MethodPost, "/income", url.Values{"amount": {"40"}})

	if rr := do(t, srv, http.MethodPost, "/logout", nil); rr.Code != http.StatusSeeOther {
		t.Fatalf("logout status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/summary", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("summary after logout status=%d", rr.Code)
	}
	if kv.Len() != 1 {
		t.Fatalf("storage entries=%d, want 1", kv.Len())
	}

	do(t, srv, http.MethodPost, "/login", url.Values{"username": {"erin"}})
	if got := summaryOf(t, srv); got.TotalIncome != 40 {
		t.Fatalf("ledger not restored: %+v", got)
	}
}

func TestRateLimitOnPost(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) { o.RateLimit = 2 })
	before := testutil.ToFloat64(metrics.RateLimited)

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/logout", nil); rr.Code != http.StatusSeeOther {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/logout", nil)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("status=%d retry=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
	if rr := do(t, srv, http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK {
		t.Fatalf("GET should not be limited, status=%d", rr.Code)
	}
	if got := testutil.ToFloat64(metrics.RateLimited) - before; got != 1 {
		t.Fatalf("rate limited counter delta=%v, want 1", got)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/healthz", nil)
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing security headers: %v", rr.Header())
	}
	if _, err := uuid.Parse(rr.Header().Get("X-Request-ID")); err != nil {
		t.Fatalf("request id not a uuid: %q", rr.Header().Get("X-Request-ID"))
	}

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", id)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Header().Get("X-Request-ID") != id {
		t.Fatalf("incoming request id not kept")
	}
}

func TestMetricsEndpointAndRouteLabels(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	counter := metrics.HTTPRequests.WithLabelValues("/api/summary", http.MethodGet, "401")
	before := testutil.ToFloat64(counter)

	do(t, srv, http.MethodGet, "/api/summary", nil)
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("route counter delta=%v, want 1", got)
	}

	rr := do(t, srv, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "zf_http_requests_total") {
		t.Fatalf("metrics status=%d", rr.Code)
	}

	off, _ := newTestServer(t, func(o *Options) { o.MetricsEnabled = false })
	if rr := do(t, off, http.MethodGet, "/metrics", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("disabled metrics status=%d, want 404", rr.Code)
	}
}

func TestAuthPage(t *testing.T) {
	fa := &fakeAuth{session: &auth.Session{
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		User:        auth.User{ID: "u1", Email: "zed@example.com"},
	}}
	srv, _ := newTestServer(t, func(o *Options) { o.Auth = auth.NewProvider(fa, nil, nil) })

	rr := do(t, srv, http.MethodGet, "/auth", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Iniciar sesión / Registrarse") {
		t.Fatalf("auth page status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/auth", url.Values{"action": {"signin"}, "email": {"zed@example.com"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing password status=%d, want 422", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/auth", url.Values{"action": {"signin"}, "email": {"zed@example.com"}, "password": {"pw"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("signin status=%d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != authCookie || cookies[0].Value != "tok" {
		t.Fatalf("unexpected cookies %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if !strings.Contains(rr.Body.String(), "Bienvenido, zed@example.com") {
		t.Fatalf("session not restored from cookie")
	}

	rr = do(t, srv, http.MethodPost, "/auth", url.Values{"action": {"signup"}, "email": {"new@example.com"}, "password": {"pw"}})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Revisa tu correo") {
		t.Fatalf("pending signup status=%d", rr.Code)
	}

	fa.err = &auth.Error{Status: 400, Message: "Invalid login credentials"}
	rr = do(t, srv, http.MethodPost, "/auth", url.Values{"action": {"signin"}, "email": {"zed@example.com"}, "password": {"bad"}})
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), "Invalid login credentials") {
		t.Fatalf("bad credentials status=%d", rr.Code)
	}
}

func TestAuthRoutesAbsentWithoutProvider(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	if rr := do(t, srv, http.MethodGet, "/auth", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rr.Code)
	}
}
