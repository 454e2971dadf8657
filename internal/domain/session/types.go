// Package session holds the identity the client is currently authenticated as.
package session

import (
	"errors"
	"time"
)

// Role is the kind of account a Session belongs to.
type Role string

const (
	// RoleOrdinary is an end user who reports their own position.
	RoleOrdinary Role = "ordinary"
	// RoleAdministrator can browse the directory and inspect other users.
	RoleAdministrator Role = "administrator"
)

// Session is the cached record of the authenticated identity.
// It is created by a successful login or profile probe and destroyed by
// logout or by any backend response that reports the session as invalid.
type Session struct {
	// UserID is the backend identifier of the user (the "_id" field).
	UserID string
	// FirstName is used for greetings and map popups.
	FirstName string
	// EmailID is the login email of the user.
	EmailID string
	// Role decides which area the session may enter.
	Role Role
	// IsPresent mirrors the backend's online flag at the time of the probe.
	IsPresent bool
	// CreatedAt is when this client cached the session (UTC).
	CreatedAt time.Time
}

// IsAdmin reports whether the session belongs to an administrator.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdministrator
}

// Errors used by the Session Store and its callers.
var (
	// ErrUnauthorized is returned when the backend rejects the session cookie.
	// Callers redirect to the login view of the current area.
	ErrUnauthorized = errors.New("session unauthorized")

	// ErrNoSession is returned when no session could be established for a
	// reason other than an explicit rejection (network failure, bad payload).
	ErrNoSession = errors.New("no session")
)
