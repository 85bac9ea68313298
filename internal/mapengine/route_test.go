package mapengine_test

import (
	"testing"

	"github.com/mvarga/waylog/internal/core/domain"
	"github.com/mvarga/waylog/internal/mapengine"
)

func TestCurvedPath_Coincident(t *testing.T) {
	p := mapengine.PixelPoint{X: 100, Y: 100}
	q := mapengine.PixelPoint{X: 100.5, Y: 100.3}

	path := mapengine.CurvedPath(p, q, domain.GeoPoint{}, domain.GeoPoint{}, domain.ModeCar)
	if len(path.Controls) != 0 {
		t.Errorf("sub-pixel leg should be a straight segment, got %d controls", len(path.Controls))
	}
}

func TestCurvedPath_ModeShapes(t *testing.T) {
	from := mapengine.PixelPoint{X: 0, Y: 0}
	to := mapengine.PixelPoint{X: 100, Y: 0}

	cases := []struct {
		mode     domain.TransportMode
		controls int
		dashed   bool
	}{
		{domain.ModeCar, 1, false},
		{domain.ModeTrain, 1, false},
		{domain.ModeBus, 1, false},
		{domain.ModeNone, 1, false},
		{domain.ModePlane, 1, true},
		{domain.ModeBoat, 2, false},
	}

	for _, tc := range cases {
		path := mapengine.CurvedPath(from, to,
			domain.GeoPoint{Lat: 40, Lon: 0}, domain.GeoPoint{Lat: 40, Lon: 1}, tc.mode)
		if len(path.Controls) != tc.controls {
			t.Errorf("%s: got %d controls, want %d", tc.mode, len(path.Controls), tc.controls)
		}
		if path.Dashed != tc.dashed {
			t.Errorf("%s: dashed = %v, want %v", tc.mode, path.Dashed, tc.dashed)
		}
	}
}

func TestCurvedPath_PlaneCurvesMoreThanCar(t *testing.T) {
	from := mapengine.PixelPoint{X: 0, Y: 0}
	to := mapengine.PixelPoint{X: 100, Y: 0}
	geo := domain.GeoPoint{Lat: 40, Lon: 0}

	car := mapengine.CurvedPath(from, to, geo, geo, domain.ModeCar)
	plane := mapengine.CurvedPath(from, to, geo, geo, domain.ModePlane)

	carOff := abs(car.Controls[0].Y)
	planeOff := abs(plane.Controls[0].Y)
	if planeOff <= carOff {
		t.Errorf("plane offset %v should exceed car offset %v", planeOff, carOff)
	}
}

func TestCurvedPath_BoatCurvesTowardEquator(t *testing.T) {
	// East-west leg at 40°N: both control points must sit south of the
	// straight segment (larger screen Y), toward the equator. Pure
	// function — repeated calls agree.
	from := mapengine.Project(domain.GeoPoint{Lat: 40, Lon: 0}, 5, mapengine.TileSize)
	to := mapengine.Project(domain.GeoPoint{Lat: 40, Lon: 60}, 5, mapengine.TileSize)

	var firstY float64
	for i := 0; i < 3; i++ {
		path := mapengine.CurvedPath(from, to,
			domain.GeoPoint{Lat: 40, Lon: 0}, domain.GeoPoint{Lat: 40, Lon: 60}, domain.ModeBoat)
		for _, c := range path.Controls {
			if c.Y <= from.Y {
				t.Fatalf("northern hemisphere east-west boat leg curved north: control Y %v, segment Y %v", c.Y, from.Y)
			}
		}
		if i == 0 {
			firstY = path.Controls[0].Y
		} else if path.Controls[0].Y != firstY {
			t.Fatal("boat curve is not deterministic")
		}
	}
}

func TestCurvedPath_BoatSouthernHemisphere(t *testing.T) {
	from := mapengine.Project(domain.GeoPoint{Lat: -30, Lon: 10}, 5, mapengine.TileSize)
	to := mapengine.Project(domain.GeoPoint{Lat: -30, Lon: 50}, 5, mapengine.TileSize)

	path := mapengine.CurvedPath(from, to,
		domain.GeoPoint{Lat: -30, Lon: 10}, domain.GeoPoint{Lat: -30, Lon: 50}, domain.ModeBoat)
	for _, c := range path.Controls {
		if c.Y >= from.Y {
			t.Errorf("southern hemisphere east-west boat leg curved south: control Y %v, segment Y %v", c.Y, from.Y)
		}
	}
}

func TestCurvedPath_BoatNorthSouthCurvesEast(t *testing.T) {
	from := mapengine.Project(domain.GeoPoint{Lat: 55, Lon: 12}, 5, mapengine.TileSize)
	to := mapengine.Project(domain.GeoPoint{Lat: 35, Lon: 14}, 5, mapengine.TileSize)

	path := mapengine.CurvedPath(from, to,
		domain.GeoPoint{Lat: 55, Lon: 12}, domain.GeoPoint{Lat: 35, Lon: 14}, domain.ModeBoat)
	for _, c := range path.Controls {
		// East is +X; controls must sit east of both endpoints.
		if c.X <= from.X || c.X <= to.X {
			t.Errorf("north-south boat leg did not curve east: control X %v, endpoints %v / %v",
				c.X, from.X, to.X)
		}
	}
}

func TestLegPaths_SkipsUnlocated(t *testing.T) {
	v := mapengine.NewViewport(testConfig())
	legs := []domain.RouteLeg{
		{From: domain.GeoPoint{Lat: 48.85, Lon: 2.35}, To: domain.GeoPoint{Lat: 41.39, Lon: 2.17}, Mode: domain.ModeTrain},
		{From: domain.GeoPoint{Lat: 41.39, Lon: 2.17}, To: domain.GeoPoint{}, Mode: domain.ModePlane}, // awaiting geocode
	}

	paths := mapengine.LegPaths(v, legs)
	if len(paths) != 1 {
		t.Fatalf("got %d paths, want 1 (unlocated leg skipped)", len(paths))
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
