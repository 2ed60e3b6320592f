// Package geo approximates "nearby" with a bounding box around a point.
// The box is a square, not a circle: points inside the box but beyond the
// requested radius along the diagonal are included. Callers must not assume
// strict radius correctness.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

// earthRadiusKm is the mean Earth radius used for the degree conversion.
const earthRadiusKm = 6371

// Box is a latitude/longitude bounding box.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoundingBox converts a radius in kilometres around (lat, lon) into a Box.
// The longitude delta is widened by 1/cos(lat) to compensate for meridian
// convergence away from the equator. Edges are clamped to ±90/±180; a box
// touching a pole or the antimeridian is truncated, not wrapped.
func BoundingBox(lat, lon, radiusKm float64) (Box, error) {
	if lat < -90 || lat > 90 {
		return Box{}, eris.Wrapf(model.ErrInvalidInput, "geo: latitude %f out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return Box{}, eris.Wrapf(model.ErrInvalidInput, "geo: longitude %f out of range", lon)
	}
	if radiusKm <= 0 {
		return Box{}, eris.Wrapf(model.ErrInvalidInput, "geo: radius %f must be positive", radiusKm)
	}

	latDelta := (radiusKm / earthRadiusKm) * (180 / math.Pi)
	lonDelta := latDelta / math.Cos(lat*math.Pi/180)

	return Box{
		MinLat: math.Max(lat-latDelta, -90),
		MaxLat: math.Min(lat+latDelta, 90),
		MinLon: math.Max(lon-lonDelta, -180),
		MaxLon: math.Min(lon+lonDelta, 180),
	}, nil
}

// Bounds returns the box as a go-geom bounds in (lon, lat) axis order.
func (b Box) Bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Contains reports whether (lat, lon) lies inside the box, edges included.
func (b Box) Contains(lat, lon float64) bool {
	return b.Bounds().OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}
