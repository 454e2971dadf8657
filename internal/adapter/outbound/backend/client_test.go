package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/domain/session"
	"github.com/trackify-app/trackify/internal/port/outbound"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	if _, err := NewClient("::not a url"); err == nil {
		t.Fatal("NewClient() expected error for invalid url")
	}
}

func TestLogin_CachesCookieForLaterCalls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var creds outbound.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if creds.EmailID != "ada@example.com" || creds.Password != "secret" {
			t.Errorf("unexpected credentials: %+v", creds)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "abc", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Login successful","data":{"_id":"u1","firstName":"Ada","emailId":"ada@example.com","isOnline":true}}`))
	})
	mux.HandleFunc("GET /profile/view", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("token")
		if err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Please login"))
			return
		}
		_, _ = w.Write([]byte(`{"_id":"u1","firstName":"Ada","emailId":"ada@example.com"}`))
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	s, err := c.Login(ctx, session.AreaOrdinary, outbound.Credentials{EmailID: "ada@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if s.UserID != "u1" || s.FirstName != "Ada" || s.Role != session.RoleOrdinary || !s.IsPresent {
		t.Errorf("Login() session = %+v", s)
	}

	probed, err := c.Profile(ctx, session.AreaOrdinary)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if probed.UserID != "u1" {
		t.Errorf("Profile() user = %q, want u1", probed.UserID)
	}
}

func TestProfile_Unauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/profile/view" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
	}))

	_, err := c.Profile(context.Background(), session.AreaAdmin)
	if !errors.Is(err, session.ErrUnauthorized) {
		t.Fatalf("Profile() error = %v, want ErrUnauthorized", err)
	}
	if got := outbound.MessageOf(err); got != "Unauthorized" {
		t.Errorf("MessageOf() = %q", got)
	}
}

func TestAdminLogin_RoleFromArea(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{"_id":"a1","firstName":"Root"}}`))
	}))

	s, err := c.Login(context.Background(), session.AreaAdmin, outbound.Credentials{EmailID: "root@example.com", Password: "x"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if s.Role != session.RoleAdministrator {
		t.Errorf("Role = %q, want administrator", s.Role)
	}
}

func TestLogin_ExplicitIsAdminWins(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"_id":"a1","firstName":"Root","isAdmin":true}}`))
	}))

	s, err := c.Login(context.Background(), session.AreaOrdinary, outbound.Credentials{})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if s.Role != session.RoleAdministrator {
		t.Errorf("Role = %q, want administrator", s.Role)
	}
}

func TestLogin_PlainTextError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("ERROR : Invalid credentials"))
	}))

	_, err := c.Login(context.Background(), session.AreaOrdinary, outbound.Credentials{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Login() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d", apiErr.Status)
	}
	if apiErr.Message != "ERROR : Invalid credentials" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if errors.Is(err, session.ErrUnauthorized) {
		t.Error("400 must not match ErrUnauthorized")
	}
}

func TestLogout_SendsUserID(t *testing.T) {
	var gotID string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/logout" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotID = r.URL.Query().Get("id")
		_, _ = w.Write([]byte("Logout successful"))
	}))

	if err := c.Logout(context.Background(), "u 1"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if gotID != "u 1" {
		t.Errorf("id = %q, want %q", gotID, "u 1")
	}
}

func TestUpdateLocation(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantLat  float64
	}{
		{"echoed document", `{"data":{"latitude":48.85,"longitude":2.35,"accuracy":5,"speed":null}}`, 48.85},
		{"acknowledged without document", `{"message":"ok"}`, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut || r.URL.Path != "/location/update" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				var u map[string]any
				if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
					t.Errorf("decode body: %v", err)
				}
				for _, k := range []string{"latitude", "longitude", "accuracy", "speed"} {
					if _, ok := u[k]; !ok {
						t.Errorf("body missing %q", k)
					}
				}
				_, _ = w.Write([]byte(tt.response))
			}))

			got, err := c.UpdateLocation(context.Background(), location.Update{Latitude: 10, Longitude: 20, Accuracy: 3})
			if err != nil {
				t.Fatalf("UpdateLocation() error = %v", err)
			}
			if got.Latitude != tt.wantLat {
				t.Errorf("Latitude = %v, want %v", got.Latitude, tt.wantLat)
			}
		})
	}
}

func TestListUsers(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("page = %q", r.URL.Query().Get("page"))
		}
		_, _ = w.Write([]byte(`{"data":[{"_id":"u1","firstName":"Ada","emailId":"a@x","isOnline":true},{"_id":"u2","firstName":"Bob","emailId":"b@x"}],"pagination":{"totalPages":3}}`))
	}))

	page, err := c.ListUsers(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if page.Number != 2 || page.TotalPages != 3 || len(page.Entries) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Entries[0].Status() != "Online" || page.Entries[1].Status() != "Offline" {
		t.Errorf("statuses = %s, %s", page.Entries[0].Status(), page.Entries[1].Status())
	}
}

func TestListUsers_EmptyData(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"pagination":{"totalPages":0}}`))
	}))

	page, err := c.ListUsers(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if page.Entries == nil || len(page.Entries) != 0 {
		t.Errorf("Entries = %#v, want empty slice", page.Entries)
	}
}

func TestGetUserLocation_NoData(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/admin/user-location/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":null}`))
	}))

	got, err := c.GetUserLocation(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUserLocation() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetUserLocation() = %+v, want nil", got)
	}
}

func TestGetUserLocation_MessageOnlyIsNoData(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"No location found for user"}`))
	}))

	got, err := c.GetUserLocation(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetUserLocation() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetUserLocation() = %+v, want nil", got)
	}
}

func TestGetUserLocation_BareDocument(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"latitude":12.9,"longitude":77.6,"accuracy":10}`))
	}))

	got, err := c.GetUserLocation(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetUserLocation() error = %v", err)
	}
	if got == nil || got.Latitude != 12.9 || got.Longitude != 77.6 {
		t.Errorf("GetUserLocation() = %+v", got)
	}
}

func TestGetUser_MessageOnlyIsFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Fetched"}`))
	}))

	p, err := c.GetUser(context.Background(), "u1")
	if err == nil {
		t.Fatalf("GetUser() = %+v, want error", p)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("error = %v, want 404 APIError", err)
	}
	if apiErr.BackendMessage() != "" {
		t.Errorf("BackendMessage() = %q, want empty so the view falls back", apiErr.BackendMessage())
	}
	if errors.Is(err, session.ErrUnauthorized) {
		t.Error("missing user must not read as an expired session")
	}
}

func TestGetUser(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/user/u1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{"_id":"u1","firstName":"Ada","lastName":"L","emailId":"a@x","isOnline":true}}`))
	}))

	p, err := c.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if p.FirstName != "Ada" || p.LastName != "L" || !p.IsOnline {
		t.Errorf("profile = %+v", p)
	}
}

func TestUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	c, err := NewClient(addr, WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = c.ListUsers(context.Background(), 1)
	if !errors.Is(err, ErrBackendUnreachable) {
		t.Fatalf("error = %v, want ErrBackendUnreachable", err)
	}
	var ue *UnreachableError
	if !errors.As(err, &ue) || ue.Cause == nil {
		t.Errorf("expected UnreachableError with cause, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.UpdateLocation(ctx, location.Update{})
	if !IsCanceled(err) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{``, ""},
		{`{"message":"User not found"}`, "User not found"},
		{`"quoted"`, "quoted"},
		{`plain text`, "plain text"},
		{`<html>oops</html>`, ""},
	}
	for _, tt := range tests {
		if got := extractMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("extractMessage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
