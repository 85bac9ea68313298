package mapengine

import (
	"math"

	"github.com/mvarga/waylog/internal/core/domain"
)

const (
	// maxMercatorLat is the latitude where Web Mercator tiles end
	// (arctan(sinh(π))).
	maxMercatorLat = 85.0511
	minMercatorLat = -85.0511
)

// Config parameterises a viewport instance. The same engine serves the
// overview map (many trips) and the trip-detail map (one trip); only the
// configuration differs.
type Config struct {
	DefaultCenter domain.GeoPoint
	DefaultZoom   int
	MinZoom       int
	MaxZoom       int
	// SinglePointZoom caps the zoom chosen when fitting a single point
	// (a one-destination trip). Zero means no cap.
	SinglePointZoom int
	TileSize        int
}

// DefaultConfig is the stock Europe-centred view used when no configuration
// is supplied.
func DefaultConfig() Config {
	return Config{
		DefaultCenter:   domain.GeoPoint{Lat: 48.0, Lon: 9.0},
		DefaultZoom:     5,
		MinZoom:         3,
		MaxZoom:         12,
		SinglePointZoom: 6,
		TileSize:        TileSize,
	}
}

func (c Config) withDefaults() Config {
	if c.TileSize <= 0 {
		c.TileSize = TileSize
	}
	if c.MaxZoom <= 0 {
		c.MaxZoom = 12
	}
	if c.MinZoom <= 0 {
		c.MinZoom = 3
	}
	if c.DefaultZoom == 0 {
		c.DefaultZoom = (c.MinZoom + c.MaxZoom) / 2
	}
	return c
}

// Viewport owns the current map center and zoom. All mutation goes through
// the operations below; rendering code only ever reads the state.
type Viewport struct {
	cfg    Config
	center domain.GeoPoint
	zoom   int

	// Last FitBounds result; Reset restores it when present so "reset"
	// returns to the framing the map opened with.
	fitCenter *domain.GeoPoint
	fitZoom   int
}

// NewViewport creates a viewport seeded with the configured default view.
func NewViewport(cfg Config) *Viewport {
	cfg = cfg.withDefaults()
	v := &Viewport{cfg: cfg}
	v.center = cfg.DefaultCenter
	v.zoom = clampInt(cfg.DefaultZoom, cfg.MinZoom, cfg.MaxZoom)
	return v
}

// Center returns the current geographic center.
func (v *Viewport) Center() domain.GeoPoint { return v.center }

// Zoom returns the current zoom level.
func (v *Viewport) Zoom() int { return v.zoom }

// Config returns the viewport's configuration.
func (v *Viewport) Config() Config { return v.cfg }

// PanBy shifts the view by a screen-pixel delta. Dragging the map content
// right moves the center west, so the delta is subtracted in world space.
func (v *Viewport) PanBy(dx, dy float64) {
	world := Project(v.center, v.zoom, v.cfg.TileSize)
	world.X -= dx
	world.Y -= dy
	v.center = v.clampCenter(Unproject(world, v.zoom, v.cfg.TileSize))
}

// ZoomBy changes zoom by delta, clamped to the configured range, keeping
// the center fixed.
func (v *Viewport) ZoomBy(delta int) {
	v.zoom = clampInt(v.zoom+delta, v.cfg.MinZoom, v.cfg.MaxZoom)
}

// ZoomAt changes zoom by delta while keeping the geographic point under the
// anchor screen position fixed (zoom-to-cursor). The anchor is in screen
// coordinates of a containerW×containerH viewport.
func (v *Viewport) ZoomAt(delta int, anchorX, anchorY float64, containerW, containerH int) {
	newZoom := clampInt(v.zoom+delta, v.cfg.MinZoom, v.cfg.MaxZoom)
	if newZoom == v.zoom {
		return
	}

	offX := anchorX - float64(containerW)/2
	offY := anchorY - float64(containerH)/2

	// Geographic point under the anchor before the zoom change.
	world := Project(v.center, v.zoom, v.cfg.TileSize)
	anchorGeo := Unproject(PixelPoint{X: world.X + offX, Y: world.Y + offY}, v.zoom, v.cfg.TileSize)

	// Solve for the center that keeps that point under the anchor after.
	anchorWorld := Project(anchorGeo, newZoom, v.cfg.TileSize)
	v.zoom = newZoom
	v.center = v.clampCenter(Unproject(PixelPoint{
		X: anchorWorld.X - offX,
		Y: anchorWorld.Y - offY,
	}, newZoom, v.cfg.TileSize))
}

// SetZoomAt sets an absolute zoom level with the same anchor-preserving
// adjustment as ZoomAt. Used by pinch gestures, which compute the target
// zoom from a snapshot rather than incrementally.
func (v *Viewport) SetZoomAt(zoom int, anchorX, anchorY float64, containerW, containerH int) {
	v.ZoomAt(clampInt(zoom, v.cfg.MinZoom, v.cfg.MaxZoom)-v.zoom, anchorX, anchorY, containerW, containerH)
}

// Set replaces center and zoom directly, clamping both. Used to restore a
// snapshot (pinch baseline) or apply an explicit viewport from a request.
func (v *Viewport) Set(center domain.GeoPoint, zoom int) {
	v.center = v.clampCenter(center)
	v.zoom = clampInt(zoom, v.cfg.MinZoom, v.cfg.MaxZoom)
}

// Reset restores the default view: the last FitBounds framing when one was
// computed, the configured default otherwise.
func (v *Viewport) Reset() {
	if v.fitCenter != nil {
		v.center = *v.fitCenter
		v.zoom = v.fitZoom
		return
	}
	v.center = v.cfg.DefaultCenter
	v.zoom = clampInt(v.cfg.DefaultZoom, v.cfg.MinZoom, v.cfg.MaxZoom)
}

// FitBounds frames the view around points: the box center becomes the map
// center, and the zoom is the highest level at which the padded pixel
// footprint of the box still fits the container. An empty point set falls
// back to the default view rather than failing; a degenerate (single-point)
// box fits trivially at every level, so the loop lands on MaxZoom, capped
// by SinglePointZoom when configured.
func (v *Viewport) FitBounds(points []domain.GeoPoint, containerW, containerH int, paddingFraction float64) {
	bounds, ok := domain.BoundsOf(points)
	if !ok {
		v.center = v.cfg.DefaultCenter
		v.zoom = clampInt(v.cfg.DefaultZoom, v.cfg.MinZoom, v.cfg.MaxZoom)
		return
	}
	if paddingFraction < 0 {
		paddingFraction = 0
	}

	center := bounds.Center()
	inflate := 1 + 2*paddingFraction

	chosen := v.cfg.MinZoom
	for z := v.cfg.MinZoom; z <= v.cfg.MaxZoom; z++ {
		w, h := boundsFootprint(bounds, z, v.cfg.TileSize)
		if w*inflate <= float64(containerW) && h*inflate <= float64(containerH) {
			chosen = z
			continue
		}
		break
	}

	if bounds.Degenerate() && v.cfg.SinglePointZoom > 0 && chosen > v.cfg.SinglePointZoom {
		chosen = v.cfg.SinglePointZoom
	}

	v.center = v.clampCenter(center)
	v.zoom = chosen
	fit := v.center
	v.fitCenter = &fit
	v.fitZoom = v.zoom
}

// FocusOn frames the view on a selected entity's points with the standard
// padding.
func (v *Viewport) FocusOn(points []domain.GeoPoint, containerW, containerH int) {
	v.FitBounds(points, containerW, containerH, 0.25)
}

// boundsFootprint returns the pixel extent of a geographic box at a zoom
// level. The height comes from projecting the latitude extremes; the width
// is the linear longitude span with a cos(centerLat) correction for
// Mercator stretching away from the equator.
func boundsFootprint(b domain.Bounds, zoom, tileSize int) (w, h float64) {
	scale := math.Exp2(float64(zoom)) * float64(tileSize)
	centerLatRad := (b.MinLat + b.MaxLat) / 2 * math.Pi / 180

	lonSpan := (b.MaxLon - b.MinLon) * math.Cos(centerLatRad)
	w = lonSpan / 360 * scale

	top := Project(domain.GeoPoint{Lat: b.MaxLat, Lon: b.MinLon}, zoom, tileSize)
	bottom := Project(domain.GeoPoint{Lat: b.MinLat, Lon: b.MinLon}, zoom, tileSize)
	h = bottom.Y - top.Y
	return w, h
}

func (v *Viewport) clampCenter(p domain.GeoPoint) domain.GeoPoint {
	if p.Lat > maxMercatorLat {
		p.Lat = maxMercatorLat
	} else if p.Lat < minMercatorLat {
		p.Lat = minMercatorLat
	}
	if p.Lon > 180 {
		p.Lon = 180
	} else if p.Lon < -180 {
		p.Lon = -180
	}
	return p
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
