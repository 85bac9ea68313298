package mapengine

import (
	"math"

	"github.com/mvarga/waylog/internal/core/domain"
)

// Path is the drawable geometry for one route leg: endpoints plus zero, one,
// or two bezier control points (straight, quadratic, cubic). Dashed is a
// styling hint the renderer applies per transport mode; it travels with the
// geometry so callers can style legs without re-deriving the mode.
type Path struct {
	From     PixelPoint   `json:"from"`
	To       PixelPoint   `json:"to"`
	Controls []PixelPoint `json:"controls,omitempty"`
	Dashed   bool         `json:"dashed"`
}

// Curvature factors per mode, as a fraction of the leg's straight-line
// length.
const (
	curveDefault = 0.12
	curvePlane   = 0.15
	curveBoat    = 0.25
)

// CurvedPath computes the visual path connecting two projected destination
// points. Car, train, bus, and unknown modes get a quadratic arc; plane
// legs arc slightly more and render dashed; boat legs get a cubic curve
// whose side is chosen from the leg's geography (see boatSide) to suggest
// routing around landmasses — a cosmetic heuristic, not marine routing.
//
// geoFrom and geoTo are the unprojected endpoints, used only for the boat
// heuristic. Coincident points (under 1px apart) yield a degenerate
// straight segment.
func CurvedPath(from, to PixelPoint, geoFrom, geoTo domain.GeoPoint, mode domain.TransportMode) Path {
	dx := to.X - from.X
	dy := to.Y - from.Y
	length := math.Hypot(dx, dy)

	if length < 1 {
		return Path{From: from, To: to}
	}

	// Unit perpendicular (rotate direction 90° counter-clockwise in
	// screen space, where Y grows downward).
	px := -dy / length
	py := dx / length

	mid := PixelPoint{X: from.X + dx/2, Y: from.Y + dy/2}

	switch mode {
	case domain.ModeBoat:
		sx, sy := boatSide(geoFrom, geoTo)
		offset := length * curveBoat
		// Two control points at 1/3 and 2/3, both pushed to the chosen
		// side.
		c1 := PixelPoint{X: from.X + dx/3 + sx*offset, Y: from.Y + dy/3 + sy*offset}
		c2 := PixelPoint{X: from.X + 2*dx/3 + sx*offset, Y: from.Y + 2*dy/3 + sy*offset}
		return Path{From: from, To: to, Controls: []PixelPoint{c1, c2}}
	case domain.ModePlane:
		offset := length * curvePlane
		c := PixelPoint{X: mid.X + px*offset, Y: mid.Y + py*offset}
		return Path{From: from, To: to, Controls: []PixelPoint{c}, Dashed: true}
	default:
		offset := length * curveDefault
		c := PixelPoint{X: mid.X + px*offset, Y: mid.Y + py*offset}
		return Path{From: from, To: to, Controls: []PixelPoint{c}}
	}
}

// boatSide picks the deterministic offset direction for a boat leg in
// screen space. Mostly east–west legs curve toward the equator (south when
// the midpoint is in the northern hemisphere, north otherwise); mostly
// north–south legs curve consistently east.
func boatSide(from, to domain.GeoPoint) (x, y float64) {
	lonDelta := math.Abs(to.Lon - from.Lon)
	latDelta := math.Abs(to.Lat - from.Lat)

	if lonDelta >= latDelta {
		midLat := (from.Lat + to.Lat) / 2
		if midLat > 0 {
			return 0, 1 // screen Y grows downward: +1 is south
		}
		return 0, -1
	}
	return 1, 0 // east
}

// LegPaths projects each route leg at the viewport's zoom and returns its
// curve. Legs with an unlocated endpoint (a destination awaiting geocoding)
// are skipped.
func LegPaths(v *Viewport, legs []domain.RouteLeg) []Path {
	zoom := v.Zoom()
	tileSize := v.Config().TileSize

	paths := make([]Path, 0, len(legs))
	for _, leg := range legs {
		if (leg.From == domain.GeoPoint{}) || (leg.To == domain.GeoPoint{}) {
			continue
		}
		from := Project(leg.From, zoom, tileSize)
		to := Project(leg.To, zoom, tileSize)
		paths = append(paths, CurvedPath(from, to, leg.From, leg.To, leg.Mode))
	}
	return paths
}
