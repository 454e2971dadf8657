package outbound

import (
	"context"

	"github.com/trackify-app/trackify/internal/domain/location"
)

// Positioner is the device's positioning capability.
// Implementations return an error matching location.ErrPositionUnavailable
// when access is denied or no fix can be produced.
type Positioner interface {
	CurrentPosition(ctx context.Context, opts location.Options) (location.PositionSample, error)
}

// MapView is what the map widget needs to draw a single marker.
type MapView struct {
	Latitude  float64
	Longitude float64
	Zoom      int
	// EmbedURL is loaded into the overlay frame.
	EmbedURL string
	// LinkURL opens the same view full screen.
	LinkURL string
	// Popup is the marker label.
	Popup string
}

// MapRenderer is the black-box map widget. It only consumes coordinates.
type MapRenderer interface {
	Render(sample location.PositionSample, popup string) MapView
}
