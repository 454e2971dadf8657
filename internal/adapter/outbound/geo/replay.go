package geo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trackify-app/trackify/internal/domain/location"
)

// TrackPoint is one recorded fix in a replay file.
type TrackPoint struct {
	Latitude  float64  `yaml:"latitude"`
	Longitude float64  `yaml:"longitude"`
	Accuracy  float64  `yaml:"accuracy"`
	Speed     *float64 `yaml:"speed,omitempty"`
	// Fail marks a cycle in which the device refused to answer.
	Fail bool `yaml:"fail,omitempty"`
}

// Track is the on-disk replay format.
//
//	loop: true
//	points:
//	  - {latitude: 48.8584, longitude: 2.2945, accuracy: 8}
//	  - {latitude: 48.8600, longitude: 2.2950, accuracy: 6, speed: 1.4}
//	  - {fail: true}
type Track struct {
	Loop   bool         `yaml:"loop"`
	Points []TrackPoint `yaml:"points"`
}

// ErrTrackExhausted is returned after the last point of a non-looping track.
var ErrTrackExhausted = errors.New("replay track exhausted")

// Replay walks through a recorded track, one point per request.
type Replay struct {
	mu    sync.Mutex
	track Track
	next  int
	now   func() time.Time
}

// NewReplay returns a positioner over an in-memory track.
func NewReplay(track Track) (*Replay, error) {
	if len(track.Points) == 0 {
		return nil, errors.New("replay track has no points")
	}
	return &Replay{track: track, now: time.Now}, nil
}

// LoadReplay reads a YAML track file.
func LoadReplay(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}
	var track Track
	if err := yaml.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("parse replay file %s: %w", path, err)
	}
	return NewReplay(track)
}

// CurrentPosition returns the next point of the track.
func (r *Replay) CurrentPosition(ctx context.Context, _ location.Options) (location.PositionSample, error) {
	if err := ctx.Err(); err != nil {
		return location.PositionSample{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next >= len(r.track.Points) {
		if !r.track.Loop {
			return location.PositionSample{}, fmt.Errorf("%w: %w", location.ErrPositionUnavailable, ErrTrackExhausted)
		}
		r.next = 0
	}
	p := r.track.Points[r.next]
	r.next++

	if p.Fail {
		return location.PositionSample{}, fmt.Errorf("replayed failure at point %d: %w", r.next-1, location.ErrPositionUnavailable)
	}
	s := location.PositionSample{
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		Accuracy:   p.Accuracy,
		CapturedAt: r.now().UTC(),
	}
	if p.Speed != nil {
		s.Speed = location.Float(*p.Speed)
	}
	return s, nil
}
