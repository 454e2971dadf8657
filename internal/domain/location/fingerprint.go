package location

import (
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// fingerprintDecimals rounds coordinates to roughly one meter.
const fingerprintDecimals = 5

// Fingerprint returns a hash of the sample's rounded coordinates. Two
// samples taken without moving produce the same fingerprint.
func Fingerprint(p PositionSample) uint64 {
	h := xxhash.New()
	var buf [64]byte
	b := strconv.AppendFloat(buf[:0], round(p.Latitude), 'f', fingerprintDecimals, 64)
	b = append(b, ',')
	b = strconv.AppendFloat(b, round(p.Longitude), 'f', fingerprintDecimals, 64)
	_, _ = h.Write(b)
	return h.Sum64()
}

func round(v float64) float64 {
	scale := math.Pow10(fingerprintDecimals)
	return math.Round(v*scale) / scale
}
