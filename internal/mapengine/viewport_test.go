package mapengine_test

import (
	"math"
	"testing"

	"github.com/mvarga/waylog/internal/core/domain"
	"github.com/mvarga/waylog/internal/mapengine"
)

func testConfig() mapengine.Config {
	cfg := mapengine.DefaultConfig()
	cfg.SinglePointZoom = 0 // don't cap unless a test asks for it
	return cfg
}

func TestViewport_ZoomClamp(t *testing.T) {
	v := mapengine.NewViewport(testConfig())

	for i := 0; i < 40; i++ {
		v.ZoomBy(3)
	}
	if v.Zoom() != 12 {
		t.Fatalf("zoom above max: got %d, want 12", v.Zoom())
	}

	for i := 0; i < 40; i++ {
		v.ZoomBy(-5)
	}
	if v.Zoom() != 3 {
		t.Fatalf("zoom below min: got %d, want 3", v.Zoom())
	}

	v.ZoomBy(1000)
	if v.Zoom() != 12 {
		t.Fatalf("huge delta: got %d, want 12", v.Zoom())
	}
}

func TestViewport_PanRoundTrip(t *testing.T) {
	v := mapengine.NewViewport(testConfig())
	start := v.Center()

	v.PanBy(137.5, -42.25)
	v.PanBy(-137.5, 42.25)

	end := v.Center()
	if math.Abs(end.Lat-start.Lat) > 1e-9 || math.Abs(end.Lon-start.Lon) > 1e-9 {
		t.Errorf("pan round-trip moved center: %+v -> %+v", start, end)
	}
}

func TestViewport_PanMovesCenter(t *testing.T) {
	v := mapengine.NewViewport(testConfig())
	start := v.Center()

	// Dragging content east means the center moves west.
	v.PanBy(100, 0)
	if v.Center().Lon >= start.Lon {
		t.Errorf("drag east should move center west: %v -> %v", start.Lon, v.Center().Lon)
	}
}

func TestViewport_ZoomAt_AnchorFixed(t *testing.T) {
	const w, h = 800, 600
	cases := []struct {
		name             string
		anchorX, anchorY float64
		delta            int
	}{
		{"zoom in at cursor", 613, 187, 1},
		{"zoom out at cursor", 613, 187, -1},
		{"corner anchor", 1, 1, 1},
		{"center anchor", 400, 300, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := mapengine.NewViewport(testConfig())
			v.Set(domain.GeoPoint{Lat: 41.39, Lon: 2.17}, 7)

			geoBefore := geoUnder(v, tc.anchorX, tc.anchorY, w, h)
			v.ZoomAt(tc.delta, tc.anchorX, tc.anchorY, w, h)
			after := screenOf(v, geoBefore, w, h)

			if math.Hypot(after.X-tc.anchorX, after.Y-tc.anchorY) > 1 {
				t.Errorf("anchor drifted: geo point now at (%v, %v), anchor (%v, %v)",
					after.X, after.Y, tc.anchorX, tc.anchorY)
			}
		})
	}
}

func TestViewport_FitBounds_Containment(t *testing.T) {
	const w, h = 800, 600
	points := []domain.GeoPoint{
		{Lat: 48.85, Lon: 2.35},  // Paris
		{Lat: 41.39, Lon: 2.17},  // Barcelona
		{Lat: 52.52, Lon: 13.40}, // Berlin
	}

	v := mapengine.NewViewport(testConfig())
	v.FitBounds(points, w, h, 0.25)

	zoom := v.Zoom()

	// Every point must land inside the container at the chosen framing.
	for _, p := range points {
		s := screenOf(v, p, w, h)
		if s.X < 0 || s.X > w || s.Y < 0 || s.Y > h {
			t.Errorf("point %+v outside container at zoom %d: (%v, %v)", p, zoom, s.X, s.Y)
		}
	}

	// Tightness: one level higher must not have fit (unless already at
	// max).
	if zoom < 12 {
		v2 := mapengine.NewViewport(testConfig())
		v2.Set(v.Center(), zoom+1)
		fits := true
		for _, p := range points {
			s := screenOf(v2, p, w, h)
			// Footprint inflated by the 25% margin on each side.
			if s.X < w*0.2 || s.X > w*0.8 || s.Y < h*0.2 || s.Y > h*0.8 {
				fits = false
			}
		}
		if fits {
			t.Errorf("zoom %d chosen but %d still fits with padding", zoom, zoom+1)
		}
	}
}

func TestViewport_FitBounds_EmptyFallsBack(t *testing.T) {
	cfg := testConfig()
	v := mapengine.NewViewport(cfg)
	v.Set(domain.GeoPoint{Lat: 10, Lon: 10}, 9)

	v.FitBounds(nil, 800, 600, 0.25)

	if v.Center() != cfg.DefaultCenter {
		t.Errorf("empty fit should restore default center, got %+v", v.Center())
	}
	if v.Zoom() != cfg.DefaultZoom {
		t.Errorf("empty fit should restore default zoom, got %d", v.Zoom())
	}
}

func TestViewport_FitBounds_SinglePointTerminates(t *testing.T) {
	v := mapengine.NewViewport(testConfig())
	v.FitBounds([]domain.GeoPoint{{Lat: 35.68, Lon: 139.69}}, 800, 600, 0.25)

	// A degenerate box fits trivially at every level, so the loop lands
	// on max zoom.
	if v.Zoom() != 12 {
		t.Errorf("single point: got zoom %d, want 12", v.Zoom())
	}
}

func TestViewport_FitBounds_SinglePointZoomCap(t *testing.T) {
	cfg := mapengine.DefaultConfig() // SinglePointZoom: 6
	v := mapengine.NewViewport(cfg)
	v.FitBounds([]domain.GeoPoint{{Lat: 35.68, Lon: 139.69}}, 800, 600, 0.25)

	if v.Zoom() != 6 {
		t.Errorf("single point with cap: got zoom %d, want 6", v.Zoom())
	}
}

func TestViewport_Reset(t *testing.T) {
	cfg := testConfig()
	v := mapengine.NewViewport(cfg)

	v.PanBy(500, 300)
	v.ZoomBy(4)
	v.Reset()

	if v.Center() != cfg.DefaultCenter || v.Zoom() != cfg.DefaultZoom {
		t.Errorf("reset did not restore default view: %+v zoom %d", v.Center(), v.Zoom())
	}

	// After a fit, reset returns to the fitted framing.
	points := []domain.GeoPoint{{Lat: 40, Lon: -3}, {Lat: 52, Lon: 5}}
	v.FitBounds(points, 800, 600, 0.25)
	fitCenter, fitZoom := v.Center(), v.Zoom()

	v.PanBy(250, -80)
	v.ZoomBy(2)
	v.Reset()

	if v.Center() != fitCenter || v.Zoom() != fitZoom {
		t.Errorf("reset after fit: got %+v zoom %d, want %+v zoom %d",
			v.Center(), v.Zoom(), fitCenter, fitZoom)
	}
}

// geoUnder returns the geographic point under a screen position.
func geoUnder(v *mapengine.Viewport, x, y float64, w, h int) domain.GeoPoint {
	center := mapengine.Project(v.Center(), v.Zoom(), mapengine.TileSize)
	return mapengine.Unproject(mapengine.PixelPoint{
		X: center.X + x - float64(w)/2,
		Y: center.Y + y - float64(h)/2,
	}, v.Zoom(), mapengine.TileSize)
}

// screenOf returns the screen position of a geographic point.
func screenOf(v *mapengine.Viewport, p domain.GeoPoint, w, h int) mapengine.PixelPoint {
	center := mapengine.Project(v.Center(), v.Zoom(), mapengine.TileSize)
	world := mapengine.Project(p, v.Zoom(), mapengine.TileSize)
	return mapengine.PixelPoint{
		X: world.X - center.X + float64(w)/2,
		Y: world.Y - center.Y + float64(h)/2,
	}
}
