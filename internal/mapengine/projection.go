// Package mapengine implements the interactive map viewport engine behind
// the overview and trip-detail maps: Web Mercator projection, visible-tile
// addressing, viewport state (pan/zoom/fit), pointer gesture handling, and
// route curve geometry. Everything here is pure in-process computation; tile
// images are fetched by the client from the URLs the engine hands out.
package mapengine

import (
	"math"

	"github.com/mvarga/waylog/internal/core/domain"
)

// TileSize is the edge length of a slippy-map tile in pixels.
const TileSize = 256

// PixelPoint is a position in world-pixel space at a given zoom level.
// World pixels span [0, 2^zoom * tileSize) on each axis; converting to
// screen space is a center-relative translation done by the caller.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Project converts a geographic point to world-pixel coordinates at the
// given zoom. Standard Web Mercator: longitude is linear in X, latitude goes
// through the inverse Gudermannian. Latitude must be strictly inside ±90°;
// the poles are a singularity of the projection and are not clamped here.
func Project(p domain.GeoPoint, zoom int, tileSize int) PixelPoint {
	scale := math.Exp2(float64(zoom)) * float64(tileSize)
	latRad := p.Lat * math.Pi / 180
	return PixelPoint{
		X: (p.Lon + 180) / 360 * scale,
		Y: (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * scale,
	}
}

// Unproject is the exact inverse of Project, via the hyperbolic-sine form.
// Round-trips with Project within floating-point tolerance for any latitude
// strictly inside (-85, 85).
func Unproject(p PixelPoint, zoom int, tileSize int) domain.GeoPoint {
	scale := math.Exp2(float64(zoom)) * float64(tileSize)
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*p.Y/scale)))
	return domain.GeoPoint{
		Lat: latRad * 180 / math.Pi,
		Lon: p.X/scale*360 - 180,
	}
}
