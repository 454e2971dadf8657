// Package outbound defines the outbound port interfaces for the tracking
// backend and the device collaborators.
package outbound

import (
	"context"
	"errors"

	"github.com/trackify-app/trackify/internal/domain/directory"
	"github.com/trackify-app/trackify/internal/domain/inspector"
	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/domain/session"
)

// Credentials are the login form fields.
type Credentials struct {
	EmailID  string `json:"emailId"`
	Password string `json:"password"`
}

// SignupRequest is the account creation form.
type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	EmailID   string `json:"emailId"`
	Password  string `json:"password"`
}

// AuthAPI is the authentication surface of the backend. Every call is
// credentialed by the session cookie the adapter keeps.
type AuthAPI interface {
	// Login authenticates through the area's login endpoint.
	Login(ctx context.Context, area session.Area, creds Credentials) (*session.Session, error)

	// Signup creates an ordinary account and authenticates as it.
	Signup(ctx context.Context, req SignupRequest) (*session.Session, error)

	// Profile is the "who am I" probe of the area.
	// Returns an error matching session.ErrUnauthorized when the cookie is rejected.
	Profile(ctx context.Context, area session.Area) (*session.Session, error)

	// Logout revokes the session of userID.
	Logout(ctx context.Context, userID string) error
}

// LocationAPI receives position samples.
type LocationAPI interface {
	// UpdateLocation submits one sample and returns the location the
	// backend stored.
	UpdateLocation(ctx context.Context, u location.Update) (*location.PositionSample, error)
}

// DirectoryAPI lists users for administrators.
type DirectoryAPI interface {
	// ListUsers fetches the 1-indexed page n.
	ListUsers(ctx context.Context, page int) (*directory.Page, error)
}

// InspectorAPI reads a single user for administrators.
type InspectorAPI interface {
	GetUser(ctx context.Context, userID string) (*inspector.Profile, error)

	// GetUserLocation returns nil without error when the user has no
	// recorded location.
	GetUserLocation(ctx context.Context, userID string) (*location.PositionSample, error)
}

// Backend is the whole REST surface consumed by the client.
type Backend interface {
	AuthAPI
	LocationAPI
	DirectoryAPI
	InspectorAPI
}

// MessageCarrier is implemented by errors that carry the backend's own
// user-facing explanation.
type MessageCarrier interface {
	BackendMessage() string
}

// MessageOf returns the backend-provided message carried by err, or "".
// Views show it and fall back to their own wording when it is empty.
func MessageOf(err error) string {
	var mc MessageCarrier
	if errors.As(err, &mc) {
		return mc.BackendMessage()
	}
	return ""
}
