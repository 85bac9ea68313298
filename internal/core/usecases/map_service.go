package usecases

import (
	"context"
	"fmt"

	"github.com/mvarga/waylog/internal/core/domain"
	"github.com/mvarga/waylog/internal/mapengine"
)

// MapConfig holds the tile service and viewport tuning shared by all map
// renders.
type MapConfig struct {
	TileBaseURL string
	TileStyle   string
	Engine      mapengine.Config
	Gesture     mapengine.GestureConfig
}

// Marker is a destination pin positioned in screen space.
type Marker struct {
	TripSlug string  `json:"trip_slug"`
	City     string  `json:"city"`
	Country  string  `json:"country,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Home     bool    `json:"home"`
}

// RenderTile is a visible tile with its image URL resolved.
type RenderTile struct {
	mapengine.TileDescriptor
	URL string `json:"url"`
}

// RenderPath is one route leg's curve in screen space, tagged with its mode
// so the client can style it (dashed plane legs, colored boat legs).
type RenderPath struct {
	mapengine.Path
	Mode domain.TransportMode `json:"mode"`
}

// RenderModel is everything a thin client needs to draw one frame of a map:
// the viewport it was computed for, the tile set, markers, and route
// curves, all in screen coordinates of a Width×Height container.
type RenderModel struct {
	Center  domain.GeoPoint `json:"center"`
	Zoom    int             `json:"zoom"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	Tiles   []RenderTile    `json:"tiles"`
	Markers []Marker        `json:"markers"`
	Routes  []RenderPath    `json:"routes"`
}

// MapService renders map models for the two call sites: the overview map
// (all trips) and the trip-detail map (one trip's route). Both share one
// engine; only the seeding differs.
type MapService struct {
	cfg   MapConfig
	trips *TripService
}

// NewMapService creates a new MapService.
func NewMapService(cfg MapConfig, trips *TripService) *MapService {
	if cfg.Engine.TileSize <= 0 {
		cfg.Engine = mapengine.DefaultConfig()
	}
	return &MapService{cfg: cfg, trips: trips}
}

// EngineConfig returns the viewport configuration used for renders, so the
// WebSocket session can build an interactive viewport with identical tuning.
func (s *MapService) EngineConfig() mapengine.Config { return s.cfg.Engine }

// GestureConfig returns the input tuning for interactive map sessions.
func (s *MapService) GestureConfig() mapengine.GestureConfig {
	if s.cfg.Gesture.DragThresholdPx <= 0 {
		return mapengine.DefaultGestureConfig()
	}
	return s.cfg.Gesture
}

// OverviewRender renders the all-trips map. When explicit is nil the
// viewport is fitted over every located destination; otherwise the given
// center/zoom is used verbatim (clamped).
func (s *MapService) OverviewRender(ctx context.Context, w, h int, explicit *domain.GeoPoint, zoom int) (*RenderModel, error) {
	if err := checkContainer(w, h); err != nil {
		return nil, err
	}

	trips, err := s.trips.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trips: %w", err)
	}

	viewport := mapengine.NewViewport(s.cfg.Engine)
	if explicit != nil {
		viewport.Set(*explicit, zoom)
	} else {
		viewport.FitBounds(locatedPoints(trips), w, h, 0.25)
	}

	model := s.render(viewport, w, h)
	for i := range trips {
		s.appendMarkers(model, viewport, &trips[i], w, h)
	}
	return model, nil
}

// TripRender renders the single-trip map: viewport fitted to the trip's
// destinations (or the explicit center/zoom), route legs drawn between
// consecutive destinations.
func (s *MapService) TripRender(ctx context.Context, slug string, w, h int, explicit *domain.GeoPoint, zoom int) (*RenderModel, error) {
	if err := checkContainer(w, h); err != nil {
		return nil, err
	}

	trip, err := s.trips.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load trip: %w", err)
	}

	viewport := mapengine.NewViewport(s.cfg.Engine)
	if explicit != nil {
		viewport.Set(*explicit, zoom)
	} else {
		viewport.FocusOn(locatedPoints([]domain.Trip{*trip}), w, h)
	}

	model := s.render(viewport, w, h)
	s.appendMarkers(model, viewport, trip, w, h)
	s.appendRoutes(model, viewport, trip, w, h)
	return model, nil
}

// RenderAt produces a model for an existing interactive viewport (the
// WebSocket session path): same tile/marker/route composition, state owned
// by the caller.
func (s *MapService) RenderAt(ctx context.Context, viewport *mapengine.Viewport, slug string, w, h int) (*RenderModel, error) {
	model := s.render(viewport, w, h)

	if slug != "" {
		trip, err := s.trips.GetBySlug(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("load trip: %w", err)
		}
		s.appendMarkers(model, viewport, trip, w, h)
		s.appendRoutes(model, viewport, trip, w, h)
		return model, nil
	}

	trips, err := s.trips.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trips: %w", err)
	}
	for i := range trips {
		s.appendMarkers(model, viewport, &trips[i], w, h)
	}
	return model, nil
}

func (s *MapService) render(v *mapengine.Viewport, w, h int) *RenderModel {
	tileSize := v.Config().TileSize
	descriptors := mapengine.VisibleTiles(v, w, h, tileSize)

	tiles := make([]RenderTile, 0, len(descriptors))
	for _, d := range descriptors {
		tiles = append(tiles, RenderTile{
			TileDescriptor: d,
			URL:            mapengine.TileURL(s.cfg.TileBaseURL, s.cfg.TileStyle, d),
		})
	}

	return &RenderModel{
		Center: v.Center(),
		Zoom:   v.Zoom(),
		Width:  w,
		Height: h,
		Tiles:  tiles,
	}
}

func (s *MapService) appendMarkers(model *RenderModel, v *mapengine.Viewport, trip *domain.Trip, w, h int) {
	tileSize := v.Config().TileSize
	center := mapengine.Project(v.Center(), v.Zoom(), tileSize)

	for i, d := range trip.Destinations {
		if !d.Geocoded {
			continue
		}
		world := mapengine.Project(d.Location, v.Zoom(), tileSize)
		model.Markers = append(model.Markers, Marker{
			TripSlug: trip.Slug,
			City:     d.City,
			Country:  d.Country,
			X:        world.X - center.X + float64(w)/2,
			Y:        world.Y - center.Y + float64(h)/2,
			Home:     i == 0 || i == len(trip.Destinations)-1,
		})
	}
}

func (s *MapService) appendRoutes(model *RenderModel, v *mapengine.Viewport, trip *domain.Trip, w, h int) {
	legs := s.trips.Legs(trip)
	tileSize := v.Config().TileSize
	center := mapengine.Project(v.Center(), v.Zoom(), tileSize)

	for _, leg := range legs {
		paths := mapengine.LegPaths(v, []domain.RouteLeg{leg})
		if len(paths) == 0 {
			continue
		}
		model.Routes = append(model.Routes, RenderPath{
			Path: toScreen(paths[0], center, w, h),
			Mode: leg.Mode,
		})
	}
}

// toScreen translates a world-pixel path into screen coordinates.
func toScreen(p mapengine.Path, center mapengine.PixelPoint, w, h int) mapengine.Path {
	shift := func(pt mapengine.PixelPoint) mapengine.PixelPoint {
		return mapengine.PixelPoint{
			X: pt.X - center.X + float64(w)/2,
			Y: pt.Y - center.Y + float64(h)/2,
		}
	}
	out := mapengine.Path{From: shift(p.From), To: shift(p.To), Dashed: p.Dashed}
	for _, c := range p.Controls {
		out.Controls = append(out.Controls, shift(c))
	}
	return out
}

func checkContainer(w, h int) error {
	if w < 64 || h < 64 || w > 8192 || h > 8192 {
		return fmt.Errorf("container size %dx%d out of range", w, h)
	}
	return nil
}

// locatedPoints collects every geocoded destination location across trips.
func locatedPoints(trips []domain.Trip) []domain.GeoPoint {
	var points []domain.GeoPoint
	for _, trip := range trips {
		for _, d := range trip.Destinations {
			if d.Geocoded {
				points = append(points, d.Location)
			}
		}
	}
	return points
}
