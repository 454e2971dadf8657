package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/trackify-app/trackify/internal/domain/directory"
	"github.com/trackify-app/trackify/internal/domain/inspector"
	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/domain/session"
	"github.com/trackify-app/trackify/internal/port/outbound"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// statusError mimics a backend error status with an optional message.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string { return e.message }

func (e *statusError) Is(target error) bool {
	return target == session.ErrUnauthorized && e.status == http.StatusUnauthorized
}

func (e *statusError) BackendMessage() string { return e.message }

var errUnauthorized = &statusError{status: http.StatusUnauthorized, message: "Unauthorized"}

// fakeBackend implements outbound.Backend with overridable functions.
type fakeBackend struct {
	profileCalls atomic.Int32
	logoutCalls  atomic.Int32

	mu          sync.Mutex
	loggedOut   []string
	uploads     []location.Update
	pages       []int
	profileFunc func(ctx context.Context, area session.Area) (*session.Session, error)
	loginFunc   func(ctx context.Context, area session.Area, creds outbound.Credentials) (*session.Session, error)
	signupFunc  func(ctx context.Context, req outbound.SignupRequest) (*session.Session, error)
	logoutErr   error
	updateFunc  func(ctx context.Context, u location.Update) (*location.PositionSample, error)
	listFunc    func(ctx context.Context, page int) (*directory.Page, error)
	userFunc    func(ctx context.Context, id string) (*inspector.Profile, error)
	locFunc     func(ctx context.Context, id string) (*location.PositionSample, error)
}

var _ outbound.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) Login(ctx context.Context, area session.Area, creds outbound.Credentials) (*session.Session, error) {
	return f.loginFunc(ctx, area, creds)
}

func (f *fakeBackend) Signup(ctx context.Context, req outbound.SignupRequest) (*session.Session, error) {
	return f.signupFunc(ctx, req)
}

func (f *fakeBackend) Profile(ctx context.Context, area session.Area) (*session.Session, error) {
	f.profileCalls.Add(1)
	if f.profileFunc == nil {
		return nil, errUnauthorized
	}
	return f.profileFunc(ctx, area)
}

func (f *fakeBackend) Logout(_ context.Context, userID string) error {
	f.logoutCalls.Add(1)
	f.mu.Lock()
	f.loggedOut = append(f.loggedOut, userID)
	f.mu.Unlock()
	return f.logoutErr
}

func (f *fakeBackend) UpdateLocation(ctx context.Context, u location.Update) (*location.PositionSample, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, u)
	fn := f.updateFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, u)
	}
	return &location.PositionSample{Latitude: u.Latitude, Longitude: u.Longitude, Accuracy: u.Accuracy, Speed: u.Speed}, nil
}

func (f *fakeBackend) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *fakeBackend) ListUsers(ctx context.Context, page int) (*directory.Page, error) {
	f.mu.Lock()
	f.pages = append(f.pages, page)
	f.mu.Unlock()
	return f.listFunc(ctx, page)
}

func (f *fakeBackend) GetUser(ctx context.Context, id string) (*inspector.Profile, error) {
	return f.userFunc(ctx, id)
}

func (f *fakeBackend) GetUserLocation(ctx context.Context, id string) (*location.PositionSample, error) {
	return f.locFunc(ctx, id)
}

// fakePositioner returns a scripted result per call.
type fakePositioner struct {
	calls atomic.Int32
	fn    func(ctx context.Context, call int) (location.PositionSample, error)
}

func (p *fakePositioner) CurrentPosition(ctx context.Context, _ location.Options) (location.PositionSample, error) {
	n := int(p.calls.Add(1))
	return p.fn(ctx, n)
}

func ordinarySession(id string) session.Session {
	return session.Session{UserID: id, FirstName: "Ada", Role: session.RoleOrdinary, IsPresent: true}
}

func adminSession(id string) session.Session {
	return session.Session{UserID: id, FirstName: "Root", Role: session.RoleAdministrator, IsPresent: true}
}

func newSessionService(b *fakeBackend) *SessionService {
	return NewSessionService(b, session.NewHolder(), discardLogger())
}
