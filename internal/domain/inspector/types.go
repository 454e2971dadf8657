// Package inspector models the per-user detail view: a profile and the
// last known location, each filled by its own fetch.
package inspector

import (
	"errors"

	"github.com/trackify-app/trackify/internal/domain/location"
)

// Fallback messages when the backend gives no message of its own.
const (
	ProfileErrorMessage  = "Failed to fetch user information."
	LocationErrorMessage = "Failed to fetch user location."
)

// ErrMapUnavailable is returned when the map overlay is requested without
// a last known location.
var ErrMapUnavailable = errors.New("no location to show on the map")

// Profile is the subset of the user document the inspector displays.
type Profile struct {
	UserID    string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	EmailID   string `json:"emailId"`
	IsOnline  bool   `json:"isOnline"`
}

// ProfileSlot is the profile half of the view.
type ProfileSlot struct {
	Loading bool
	Profile *Profile
	Err     string
}

// LocationState is the sub-state of the location half.
type LocationState string

const (
	LocationFetching  LocationState = "fetching"
	LocationError     LocationState = "error"
	LocationNoData    LocationState = "no-data"
	LocationAvailable LocationState = "available"
)

// LocationSlot is the location half of the view.
type LocationSlot struct {
	State  LocationState
	Sample *location.PositionSample
	Err    string
}

// View is the assembled inspector view for one user.
type View struct {
	UserID   string
	Profile  ProfileSlot
	Location LocationSlot
	mapOpen  bool
}

// NewView returns a view with both fetches outstanding.
func NewView(userID string) *View {
	return &View{
		UserID:   userID,
		Profile:  ProfileSlot{Loading: true},
		Location: LocationSlot{State: LocationFetching},
	}
}

// Loading reports whether the single loading placeholder replaces the view.
// Only the profile fetch gates the whole view.
func (v *View) Loading() bool {
	return v.Profile.Loading
}

// ResolveProfile fills the profile slot. A nil profile with an empty
// message records a failure with the fallback message.
func (v *View) ResolveProfile(p *Profile, errMsg string) {
	v.Profile.Loading = false
	if p != nil && errMsg == "" {
		v.Profile.Profile = p
		v.Profile.Err = ""
		return
	}
	if errMsg == "" {
		errMsg = ProfileErrorMessage
	}
	v.Profile.Err = errMsg
}

// ResolveLocation fills the location slot. A nil sample without an error
// means the backend has no location for the user.
func (v *View) ResolveLocation(s *location.PositionSample, errMsg string, failed bool) {
	switch {
	case failed:
		if errMsg == "" {
			errMsg = LocationErrorMessage
		}
		v.Location = LocationSlot{State: LocationError, Err: errMsg}
	case s == nil:
		v.Location = LocationSlot{State: LocationNoData}
	default:
		sample := *s
		v.Location = LocationSlot{State: LocationAvailable, Sample: &sample}
	}
	if v.Location.State != LocationAvailable {
		v.mapOpen = false
	}
}

// Title is the heading of the view.
func (v *View) Title() string {
	name := ""
	if v.Profile.Profile != nil {
		name = v.Profile.Profile.FirstName
	}
	return "Tracking: " + name
}

// MapAvailable reports whether "View on Map" is offered.
func (v *View) MapAvailable() bool {
	return v.Location.State == LocationAvailable && v.Location.Sample != nil
}

// OpenMap opens the overlay. It fails when no location is available.
func (v *View) OpenMap() error {
	if !v.MapAvailable() {
		return ErrMapUnavailable
	}
	v.mapOpen = true
	return nil
}

// CloseMap dismisses the overlay.
func (v *View) CloseMap() {
	v.mapOpen = false
}

// MapOpen reports whether the overlay is shown.
func (v *View) MapOpen() bool {
	return v.mapOpen
}

// PopupText is the marker popup of the overlay.
func (v *View) PopupText() string {
	name := ""
	if v.Profile.Profile != nil {
		name = v.Profile.Profile.FirstName
	}
	return name + "'s Current Location"
}
