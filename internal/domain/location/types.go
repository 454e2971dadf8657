// Package location describes position samples produced by the device's
// positioning capability and reported to the backend.
package location

import (
	"errors"
	"strconv"
	"time"
)

// DeniedNotice is shown to the user while the positioning capability
// refuses to deliver a position.
const DeniedNotice = "Location access denied. Enable GPS."

// ErrPositionUnavailable is returned by positioners that refuse or fail to
// produce a fix. It covers permission denial as well as device errors.
var ErrPositionUnavailable = errors.New("position unavailable")

// PositionSample is a single fix. It is ephemeral: the client keeps only
// the most recent acknowledged sample for display.
type PositionSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Accuracy is the radius of uncertainty in meters.
	Accuracy float64 `json:"accuracy"`
	// Speed is meters per second, nil when the device does not report it.
	Speed      *float64  `json:"speed"`
	CapturedAt time.Time `json:"capturedAt"`
}

// SpeedLabel formats the speed for display, "N/A" when unknown.
func (p PositionSample) SpeedLabel() string {
	if p.Speed == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*p.Speed, 'f', -1, 64)
}

// Update is the body of PUT /location/update.
type Update struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	Speed     *float64 `json:"speed"`
}

// UpdateFrom builds the upload payload for a sample.
func UpdateFrom(p PositionSample) Update {
	return Update{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  p.Accuracy,
		Speed:     p.Speed,
	}
}

// Options are passed to the positioning capability on every request.
type Options struct {
	// HighAccuracy asks the device for its most precise fix.
	HighAccuracy bool
	// MaxAge bounds how stale a cached fix may be; zero demands a fresh one.
	MaxAge time.Duration
}

// Float returns a pointer to v, for optional speeds.
func Float(v float64) *float64 {
	return &v
}
