// Package geo provides positioning capabilities for a headless agent:
// a fixed position, a replayed track and a device that refuses access.
package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/port/outbound"
)

// Compile-time checks.
var (
	_ outbound.Positioner = (*Static)(nil)
	_ outbound.Positioner = (*Replay)(nil)
	_ outbound.Positioner = Denied{}
)

// Static always reports the same position.
type Static struct {
	sample location.PositionSample
	now    func() time.Time
}

// NewStatic returns a positioner fixed at the given coordinates.
// A negative speed means the device does not report one.
func NewStatic(lat, lng, accuracy, speed float64) *Static {
	s := location.PositionSample{Latitude: lat, Longitude: lng, Accuracy: accuracy}
	if speed >= 0 {
		s.Speed = location.Float(speed)
	}
	return &Static{sample: s, now: time.Now}
}

// CurrentPosition returns the fixed position stamped with the current time.
func (s *Static) CurrentPosition(ctx context.Context, _ location.Options) (location.PositionSample, error) {
	if err := ctx.Err(); err != nil {
		return location.PositionSample{}, err
	}
	out := s.sample
	if s.sample.Speed != nil {
		out.Speed = location.Float(*s.sample.Speed)
	}
	out.CapturedAt = s.now().UTC()
	return out, nil
}

// Denied models a device whose positioning permission was refused.
type Denied struct{}

// CurrentPosition always fails with location.ErrPositionUnavailable.
func (Denied) CurrentPosition(ctx context.Context, _ location.Options) (location.PositionSample, error) {
	if err := ctx.Err(); err != nil {
		return location.PositionSample{}, err
	}
	return location.PositionSample{}, fmt.Errorf("permission denied: %w", location.ErrPositionUnavailable)
}
