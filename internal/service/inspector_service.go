package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/trackify-app/trackify/internal/domain/inspector"
	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/domain/session"
	"github.com/trackify-app/trackify/internal/port/outbound"
)

// InspectorService is the User Inspector read path.
type InspectorService struct {
	api      outbound.InspectorAPI
	sessions *SessionService
	maps     outbound.MapRenderer
	logger   *slog.Logger
}

// NewInspectorService creates an InspectorService.
func NewInspectorService(api outbound.InspectorAPI, sessions *SessionService, maps outbound.MapRenderer, logger *slog.Logger) *InspectorService {
	return &InspectorService{
		api:      api,
		sessions: sessions,
		maps:     maps,
		logger:   logger,
	}
}

// Inspection is a pair of outstanding fetches for one user. The fetches
// are independent: each resolves its own slot of the view.
type Inspection struct {
	userID string

	profileDone  chan struct{}
	locationDone chan struct{}

	mu          sync.Mutex
	profile     *inspector.Profile
	profileErr  error
	sample      *location.PositionSample
	locationErr error
}

// Inspect starts the profile and location fetches for userID. Both run
// until they finish or ctx ends.
func (s *InspectorService) Inspect(ctx context.Context, userID string) *Inspection {
	in := &Inspection{
		userID:       userID,
		profileDone:  make(chan struct{}),
		locationDone: make(chan struct{}),
	}

	go func() {
		defer close(in.profileDone)
		p, err := s.api.GetUser(ctx, userID)
		if err != nil {
			s.fetchFailed("profile", userID, err)
		}
		in.mu.Lock()
		in.profile, in.profileErr = p, err
		in.mu.Unlock()
	}()

	go func() {
		defer close(in.locationDone)
		loc, err := s.api.GetUserLocation(ctx, userID)
		if err != nil {
			s.fetchFailed("location", userID, err)
		}
		in.mu.Lock()
		in.sample, in.locationErr = loc, err
		in.mu.Unlock()
	}()

	return in
}

func (s *InspectorService) fetchFailed(what, userID string, err error) {
	if errors.Is(err, session.ErrUnauthorized) {
		s.sessions.Invalidate(session.AreaAdmin)
		return
	}
	s.logger.Error("inspector fetch failed",
		"fetch", what,
		"user_id", userID,
		"error", err,
	)
}

// Peek assembles the view from whatever has resolved so far.
func (in *Inspection) Peek() *inspector.View {
	v := inspector.NewView(in.userID)

	in.mu.Lock()
	defer in.mu.Unlock()

	if isClosed(in.profileDone) {
		v.ResolveProfile(in.profile, errorMessage(in.profileErr))
	}
	if isClosed(in.locationDone) {
		v.ResolveLocation(in.sample, errorMessage(in.locationErr), in.locationErr != nil)
	}
	return v
}

// View waits for both fetches and assembles the view. If either fetch was
// rejected for an invalid session it returns session.ErrUnauthorized.
// When ctx ends first, the partial view is returned with ctx's error.
func (in *Inspection) View(ctx context.Context) (*inspector.View, error) {
	for _, done := range []chan struct{}{in.profileDone, in.locationDone} {
		select {
		case <-done:
		case <-ctx.Done():
			return in.Peek(), ctx.Err()
		}
	}

	in.mu.Lock()
	unauthorized := errors.Is(in.profileErr, session.ErrUnauthorized) ||
		errors.Is(in.locationErr, session.ErrUnauthorized)
	in.mu.Unlock()

	v := in.Peek()
	if unauthorized {
		return v, session.ErrUnauthorized
	}
	return v, nil
}

// Map renders the overlay for an opened view.
func (s *InspectorService) Map(v *inspector.View) (outbound.MapView, error) {
	if !v.MapOpen() {
		if err := v.OpenMap(); err != nil {
			return outbound.MapView{}, err
		}
	}
	return s.maps.Render(*v.Location.Sample, v.PopupText()), nil
}

// errorMessage prefers the backend's own wording; empty means "use the
// view's fallback".
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return outbound.MessageOf(err)
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
