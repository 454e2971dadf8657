package http

import (
	"encoding/json"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/trackify-app/trackify/internal/adapter/outbound/backend"
	"github.com/trackify-app/trackify/internal/adapter/outbound/osm"
	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/domain/session"
	"github.com/trackify-app/trackify/internal/service"
)

// fakeAPI is a minimal tracking backend keyed on a "token" cookie.
type fakeAPI struct {
	mu            sync.Mutex
	probeStatus   int
	usersBody     func(page int) string
	locationBody  string
	logouts       []string
	loginAttempts int
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", f.login(false))
	mux.HandleFunc("POST /admin/login", f.login(true))
	mux.HandleFunc("POST /signup", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["firstName"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("ERROR : First name is required"))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "ordinary", Path: "/"})
		_, _ = w.Write([]byte(`{"data":{"_id":"u9","firstName":"` + body["firstName"] + `","isAdmin":false}}`))
	})
	mux.HandleFunc("GET /profile/view", f.profile(false))
	mux.HandleFunc("GET /admin/profile/view", f.profile(true))
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logouts = append(f.logouts, r.URL.Query().Get("id"))
		f.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1})
		_, _ = w.Write([]byte(`{"message":"Logged out"}`))
	})
	mux.HandleFunc("GET /admin/users", func(w http.ResponseWriter, r *http.Request) {
		if !isAdminRequest(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(f.usersBody(page)))
	})
	mux.HandleFunc("GET /admin/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"_id":"` + r.PathValue("id") + `","firstName":"Ada","emailId":"ada@example.com","isOnline":true}}`))
	})
	mux.HandleFunc("GET /admin/user-location/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		body := f.locationBody
		f.mu.Unlock()
		_, _ = w.Write([]byte(body))
	})
	return mux
}

func (f *fakeAPI) login(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.loginAttempts++
		f.mu.Unlock()

		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		token := "ordinary"
		if admin {
			token = "admin"
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: token, Path: "/"})
		_, _ = w.Write([]byte(`{"data":{"_id":"` + token + `-1","firstName":"Ada","emailId":"` + creds["emailId"] + `","isAdmin":` + strconv.FormatBool(admin) + `}}`))
	}
}

func (f *fakeAPI) profile(adminArea bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := f.probeStatus
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		c, err := r.Cookie("token")
		if err != nil || c.Value == "" || (adminArea && c.Value != "admin") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"_id":"` + c.Value + `-1","firstName":"Ada","isAdmin":` + strconv.FormatBool(c.Value == "admin") + `}}`))
	}
}

func isAdminRequest(r *http.Request) bool {
	c, err := r.Cookie("token")
	return err == nil && c.Value == "admin"
}

type stubSampler struct {
	snap service.SamplerSnapshot
}

func (s stubSampler) Snapshot() service.SamplerSnapshot { return s.snap }

type uiFixture struct {
	api      *fakeAPI
	holder   *session.Holder
	handler  *UIHandler
	metrics  *Metrics
	registry *prometheus.Registry
	sampler  SamplerStatus
}

func newUIFixture(t *testing.T, api *fakeAPI, sampler SamplerStatus) *uiFixture {
	t.Helper()
	if api.usersBody == nil {
		api.usersBody = func(int) string { return `{"data":[],"pagination":{"totalPages":0}}` }
	}
	if api.locationBody == "" {
		api.locationBody = `{"data":{"latitude":12.9,"longitude":77.6,"accuracy":10,"speed":null}}`
	}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	logger := discardLogger()
	client, err := backend.NewClient(srv.URL, backend.WithTimeout(2*time.Second), backend.WithLogger(logger))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	holder := session.NewHolder()
	sessions := service.NewSessionService(client, holder, logger)
	maps := osm.NewRenderer("", osm.DefaultZoom)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	ui, err := NewUIHandler(UIDeps{
		Gate:      service.NewRouteGate(sessions, logger),
		Sessions:  sessions,
		Directory: service.NewDirectoryService(client, sessions, logger),
		Inspector: service.NewInspectorService(client, sessions, maps, logger),
		Sampler:   sampler,
		Maps:      maps,
		Metrics:   metrics,
	}, logger)
	if err != nil {
		t.Fatalf("NewUIHandler() error = %v", err)
	}

	return &uiFixture{api: api, holder: holder, handler: ui, metrics: metrics, registry: reg, sampler: sampler}
}

func (f *uiFixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (f *uiFixture) post(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *uiFixture) adminLogin(t *testing.T) {
	t.Helper()
	rec := f.post(t, "/admin/login", url.Values{"emailId": {"root@example.com"}, "password": {"secret"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("admin login status = %d, want 303", rec.Code)
	}
}

// text returns the unescaped response body.
func text(rec *httptest.ResponseRecorder) string {
	return html.UnescapeString(rec.Body.String())
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusFound && rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want a redirect to %s", rec.Code, want)
	}
	if got := rec.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestNavigate_SelfWithoutSessionRedirectsToLogin(t *testing.T) {
	f := newUIFixture(t, &fakeAPI{}, nil)

	assertRedirect(t, f.get(t, "/"), "/login")

	if got := testutil.ToFloat64(f.metrics.GateDecisions.WithLabelValues("ordinary", "redirect")); got != 1 {
		t.Errorf("gate redirect count = %v, want 1", got)
	}
}

func TestNavigate_AdminWithoutSessionRedirectsToAdminLogin(t *testing.T) {
	f := newUIFixture(t, &fakeAPI{}, nil)

	assertRedirect(t, f.get(t, "/admin/dashboard"), "/admin/login")
	assertRedirect(t, f.get(t, "/admin/view/42"), "/admin/login")
}

func TestNavigate_UnknownPath(t *testing.T) {
	f := newUIFixture(t, &fakeAPI{}, nil)

	rec := f.get(t, "/nowhere")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(text(rec), "Page not found") {
		t.Errorf("body missing not-found heading")
	}
}

func TestNavigate_BackendFailureIsUnavailable(t *testing.T) {
	f := newUIFixture(t, &fakeAPI{probeStatus: http.StatusInternalServerError}, nil)

	rec := f.get(t, "/")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(text(rec), "Tracking service unavailable") {
		t.Errorf("body missing unavailable heading")
	}
}

func TestLoginPage_SignupToggle(t *testing.T) {
	f := newUIFixture(t, &fakeAPI{}, nil)

	login := text(f.get(t, "/login"))
	if !strings.Contains(login, "New User? Sign Up here") || strings.Contains(login, "First Name") {
		t.Errorf("login form rendered wrong:\n%s", login)
	}

	signup := text(f.get(t, "/login?mode=signup"))
	if !strings.Contains(signup, "First Name") || !strings.Contains(signup, "Existing User? Login here") {
		t.Errorf("signup form rendered wrong:\n%s", signup)
	}
}

func TestLogin_Success(t *testing.T) {
	snap := service.SamplerSnapshot{Active: true}
	f := newUIFixture(t, &fakeAPI{}, stubSampler{snap: snap})

	rec := f.post(t, "/login", url.Values{"emailId": {"ada@example.com"}, "password": {"secret"}})
	assertRedirect(t, rec, "/")

	if !f.holder.Present() {
		t.Fatal("session not cached after login")
	}

	body := text(f.get(t, "/"))
	for _, want := range []string{"Live Location Tracker", "Tracking location...", "Logout", `value="ordinary"`} {
		if !strings.Contains(body, want) {
			t.Errorf("self view missing %q", want)
		}
	}
	if strings.Contains(body, ">Dashboard<") {
		t.Error("ordinary navbar shows the Dashboard link")
	}
}

func TestLogin_ShowsBackendMessage(t *testing.T) {
	f := newUIFixture(t, &fakeAPI{}, nil)

	rec := f.post(t, "/login", url.Values{"emailId": {"ada@example.com"}, "password": {"wrong"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := text(rec)
	if !strings.Contains(body, "Invalid credentials") {
		t.Errorf("body missing backend message:\n%s", body)
	}
	if !strings.Contains(body, `value="ada@example.com"`) {
		t.Error("email not preserved in the form")
	}
	if f.holder.Present() {
		t.Error("session cached after failed login")
	}
}

func TestSignup(t *testing.T) {
	f := newUIFixture(t, &fakeAPI{}, nil)

	rec := f.post(t, "/signup", url.Values{"lastName": {"Lovelace"}, "emailId": {"ada@example.com"}, "password": {"secret"}})
	body := text(rec)
	if !strings.Contains(body, "First name is required") || !strings.Contains(body, "Existing User? Login here") {
		t.Errorf("signup error not shown on the signup form:\n%s", body)
	}

	rec = f.post(t, "/signup", url.Values{"firstName": {"Ada"}, "emailId": {"ada@example.com"}, "password": {"secret"}})
	assertRedirect(t, rec, "/")
	if cur, ok := f.holder.Current(); !ok || cur.UserID != "u9" {
		t.Errorf("session = %+v, %v", cur, ok)
	}
}

func TestSelfView_ShowsCurrentLocationAndNotice(t *testing.T) {
	snap := service.SamplerSnapshot{
		Active:  true,
		Notice:  location.DeniedNotice,
		Current: &location.PositionSample{Latitude: 12.9, Longitude: 77.6},
	}
	f := newUIFixture(t, &fakeAPI{}, stubSampler{snap: snap})
	f.post(t, "/login", url.Values{"emailId": {"ada@example.com"}, "password": {"secret"}})

	rec := f.get(t, "/")
	body := text(rec)
	for _, want := range []string{"Latitude: 12.9, Longitude: 77.6", location.DeniedNotice, "openstreetmap.org/export/embed.html", "Your Current Location", `http-equiv="refresh"`} {
		if !strings.Contains(body, want) {
			t.Errorf("self view missing %q", want)
		}
	}
}

func TestDashboard_EmptyPageShowsPlaceholder(t *testing.T) {
	api := &fakeAPI{usersBody: func(int) string { return `{"data":[],"pagination":{"totalPages":2}}` }}
	f := newUIFixture(t, api, nil)
	f.adminLogin(t)

	body := text(f.get(t, "/admin/dashboard?page=2"))
	for _, want := range []string{"No users found.", "Page 2 of 2", `href="/admin/dashboard?page=1"`, `<span class="disabled">Next</span>`, ">Dashboard<"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestDashboard_RowsAndNoControlsForSinglePage(t *testing.T) {
	api := &fakeAPI{usersBody: func(int) string {
		return `{"data":[{"_id":"u1","firstName":"Ada","emailId":"ada@example.com","isOnline":true},{"_id":"u2","firstName":"Bob","emailId":"bob@example.com","isOnline":false}],"pagination":{"totalPages":1}}`
	}}
	f := newUIFixture(t, api, nil)
	f.adminLogin(t)

	body := text(f.get(t, "/admin/dashboard"))
	for _, want := range []string{"ada@example.com", "Online", "Offline", `href="/admin/view/u2"`, "Track"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if strings.Contains(body, "Page 1 of 1") {
		t.Error("single page shows pagination controls")
	}
}

func TestDashboard_ClampsPageBeyondTotal(t *testing.T) {
	api := &fakeAPI{usersBody: func(int) string { return `{"data":[],"pagination":{"totalPages":2}}` }}
	f := newUIFixture(t, api, nil)
	f.adminLogin(t)

	assertRedirect(t, f.get(t, "/admin/dashboard?page=9"), "/admin/dashboard?page=2")
	assertRedirect(t, f.get(t, "/admin/dashboard?page=0"), "/admin/dashboard?page=1")
}

func TestDashboard_OrdinarySessionRedirected(t *testing.T) {
	f := newUIFixture(t, &fakeAPI{}, nil)
	f.post(t, "/login", url.Values{"emailId": {"ada@example.com"}, "password": {"secret"}})

	assertRedirect(t, f.get(t, "/admin/dashboard"), "/admin/login")
	if !f.holder.Present() {
		t.Error("ordinary session cleared by an admin navigation")
	}
}

func TestInspector_LocationAndMapOverlay(t *testing.T) {
	f := newUIFixture(t, &fakeAPI{}, nil)
	f.adminLogin(t)

	body := text(f.get(t, "/admin/view/42"))
	for _, want := range []string{"Back to Dashboard", "Tracking: Ada", "Speed:</strong> N/A", "View on Map"} {
		if !strings.Contains(body, want) {
			t.Errorf("inspector missing %q", want)
		}
	}
	if strings.Contains(body, "Location Map") {
		t.Error("map overlay open without ?map")
	}

	body = text(f.get(t, "/admin/view/42?map=1"))
	for _, want := range []string{"Ada's Location Map", "Ada's Current Location", "Lat: 12.9", `href="/admin/view/42"`, "marker=12.900000"} {
		if !strings.Contains(body, want) {
			t.Errorf("map overlay missing %q", want)
		}
	}
}

func TestInspector_NoLocation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null data", `{"data":null}`},
		{"message only", `{"message":"No location found for user"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUIFixture(t, &fakeAPI{locationBody: tt.body}, nil)
			f.adminLogin(t)

			body := text(f.get(t, "/admin/view/42?map=1"))
			if !strings.Contains(body, "No location available.") {
				t.Errorf("inspector missing no-data message:\n%s", body)
			}
			if strings.Contains(body, "View on Map") || strings.Contains(body, "Location Map") {
				t.Error("map offered without a location")
			}
		})
	}
}

func TestLogout_ClearsSessionAndRedirects(t *testing.T) {
	f := newUIFixture(t, &fakeAPI{}, nil)
	f.adminLogin(t)

	rec := f.post(t, "/logout", url.Values{"area": {"admin"}})
	assertRedirect(t, rec, "/admin/login")

	if f.holder.Present() {
		t.Error("session still cached after logout")
	}
	f.api.mu.Lock()
	logouts := append([]string(nil), f.api.logouts...)
	f.api.mu.Unlock()
	if len(logouts) != 1 || logouts[0] != "admin-1" {
		t.Errorf("backend logouts = %v, want [admin-1]", logouts)
	}

	assertRedirect(t, f.get(t, "/admin/dashboard"), "/admin/login")
}

func TestLoginPage_SignedInRedirectsHome(t *testing.T) {
	f := newUIFixture(t, &fakeAPI{}, nil)
	f.adminLogin(t)

	assertRedirect(t, f.get(t, "/login"), "/admin/dashboard")
	assertRedirect(t, f.get(t, "/admin/login"), "/admin/dashboard")
}
