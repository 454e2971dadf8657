package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/trackify-app/trackify/internal/domain/session"
	"github.com/trackify-app/trackify/internal/port/outbound"
)

// SessionService is the Session Store: it populates the Holder from the
// backend and is the only component that writes to it.
type SessionService struct {
	auth   outbound.AuthAPI
	holder *session.Holder
	logger *slog.Logger
	probes singleflight.Group
}

// NewSessionService creates a SessionService writing to holder.
func NewSessionService(auth outbound.AuthAPI, holder *session.Holder, logger *slog.Logger) *SessionService {
	return &SessionService{
		auth:   auth,
		holder: holder,
		logger: logger,
	}
}

// Holder returns the session context this service maintains.
func (s *SessionService) Holder() *session.Holder {
	return s.holder
}

// Current returns the cached session, if any.
func (s *SessionService) Current() (session.Session, bool) {
	return s.holder.Current()
}

// Probe returns the cached session or asks the area's "who am I" endpoint.
// A rejected cookie returns session.ErrUnauthorized; every other failure is
// logged and returned as session.ErrNoSession. Concurrent probes of the
// same area share one backend call.
func (s *SessionService) Probe(ctx context.Context, area session.Area) (*session.Session, error) {
	if cur, ok := s.holder.Current(); ok {
		return &cur, nil
	}

	v, err, _ := s.probes.Do(string(area), func() (any, error) {
		// Another caller may have logged in while we waited for the group.
		if cur, ok := s.holder.Current(); ok {
			return &cur, nil
		}
		got, err := s.auth.Profile(ctx, area)
		if err != nil {
			return nil, err
		}
		s.holder.Set(*got)
		s.logger.Info("session restored",
			"user_id", got.UserID,
			"role", got.Role,
			"area", area,
		)
		return got, nil
	})
	if err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			s.logger.Debug("session probe rejected", "area", area)
			return nil, session.ErrUnauthorized
		}
		s.logger.Warn("session probe failed", "area", area, "error", err)
		return nil, fmt.Errorf("%w: %w", session.ErrNoSession, err)
	}

	got := *(v.(*session.Session))
	return &got, nil
}

// Login authenticates an ordinary user and caches the session.
func (s *SessionService) Login(ctx context.Context, creds outbound.Credentials) (*session.Session, error) {
	return s.authenticate(session.AreaOrdinary, func() (*session.Session, error) {
		return s.auth.Login(ctx, session.AreaOrdinary, creds)
	})
}

// AdminLogin authenticates an administrator and caches the session.
func (s *SessionService) AdminLogin(ctx context.Context, creds outbound.Credentials) (*session.Session, error) {
	return s.authenticate(session.AreaAdmin, func() (*session.Session, error) {
		return s.auth.Login(ctx, session.AreaAdmin, creds)
	})
}

// Signup creates an ordinary account and caches its session.
func (s *SessionService) Signup(ctx context.Context, req outbound.SignupRequest) (*session.Session, error) {
	return s.authenticate(session.AreaOrdinary, func() (*session.Session, error) {
		return s.auth.Signup(ctx, req)
	})
}

func (s *SessionService) authenticate(area session.Area, call func() (*session.Session, error)) (*session.Session, error) {
	got, err := call()
	if err != nil {
		s.logger.Info("authentication failed", "area", area, "error", err)
		return nil, err
	}
	s.holder.Set(*got)
	s.logger.Info("authenticated",
		"user_id", got.UserID,
		"role", got.Role,
		"area", area,
	)
	out := *got
	return &out, nil
}

// Logout revokes the session on the backend, best effort, then clears it
// locally whatever the outcome. It returns the login path of area, or of
// the session's own area when area is empty.
func (s *SessionService) Logout(ctx context.Context, area session.Area) string {
	cur, ok := s.holder.Current()
	if area == "" {
		area = session.AreaOrdinary
		if ok {
			area = session.AreaOf(&cur)
		}
	}

	if ok {
		if err := s.auth.Logout(ctx, cur.UserID); err != nil {
			s.logger.Warn("logout request failed, clearing session anyway",
				"user_id", cur.UserID,
				"error", err,
			)
		}
	}

	if prev, cleared := s.holder.Clear(); cleared {
		s.logger.Info("logged out", "user_id", prev.UserID)
	}
	return area.LoginPath()
}

// Invalidate drops the session after the backend rejected it and returns
// the login path of area.
func (s *SessionService) Invalidate(area session.Area) string {
	if prev, ok := s.holder.Clear(); ok {
		s.logger.Info("session invalidated by backend",
			"user_id", prev.UserID,
			"area", area,
		)
	}
	return area.LoginPath()
}
