// Package osm renders single-marker maps as OpenStreetMap embed and link URLs.
package osm

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/port/outbound"
)

// DefaultZoom frames a few city blocks around the marker.
const DefaultZoom = 15

const defaultBaseURL = "https://www.openstreetmap.org"

// Renderer builds map views. It never fetches tiles itself.
type Renderer struct {
	baseURL string
	zoom    int
}

var _ outbound.MapRenderer = (*Renderer)(nil)

// NewRenderer returns a renderer against the public OpenStreetMap site.
// An empty baseURL selects the default; a zoom outside [1, 19] selects DefaultZoom.
func NewRenderer(baseURL string, zoom int) *Renderer {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if zoom < 1 || zoom > 19 {
		zoom = DefaultZoom
	}
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/"), zoom: zoom}
}

// Render centers the map on sample with a marker labeled popup.
func (r *Renderer) Render(sample location.PositionSample, popup string) outbound.MapView {
	lat, lng := sample.Latitude, sample.Longitude

	// Two tiles wide at the chosen zoom.
	span := 360 / math.Pow(2, float64(r.zoom))
	minLng, maxLng := clamp(lng-span, -180, 180), clamp(lng+span, -180, 180)
	minLat, maxLat := clamp(lat-span/2, -85, 85), clamp(lat+span/2, -85, 85)

	embed := url.Values{}
	embed.Set("bbox", strings.Join([]string{coord(minLng), coord(minLat), coord(maxLng), coord(maxLat)}, ","))
	embed.Set("layer", "mapnik")
	embed.Set("marker", coord(lat)+","+coord(lng))

	link := url.Values{}
	link.Set("mlat", coord(lat))
	link.Set("mlon", coord(lng))

	return outbound.MapView{
		Latitude:  lat,
		Longitude: lng,
		Zoom:      r.zoom,
		EmbedURL:  r.baseURL + "/export/embed.html?" + embed.Encode(),
		LinkURL:   fmt.Sprintf("%s/?%s#map=%d/%s/%s", r.baseURL, link.Encode(), r.zoom, coord(lat), coord(lng)),
		Popup:     popup,
	}
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
