package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mvarga/waylog/internal/core/domain"
	"github.com/mvarga/waylog/internal/core/ports"
)

// TripService handles trip CRUD and derived route legs.
type TripService struct {
	trips     ports.TripRepository
	cache     ports.CacheService
	events    ports.EventPublisher
	workflows ports.WorkflowStarter
}

// NewTripService creates a new TripService. cache, events, and workflows
// may be nil; the service degrades gracefully without them.
func NewTripService(trips ports.TripRepository, cache ports.CacheService, events ports.EventPublisher, workflows ports.WorkflowStarter) *TripService {
	return &TripService{trips: trips, cache: cache, events: events, workflows: workflows}
}

// Create validates and stores a new trip.
func (s *TripService) Create(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
	if err := validateTrip(trip); err != nil {
		return nil, err
	}
	if trip.Slug == "" {
		trip.Slug = slugify(trip.Title)
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}

	s.invalidateLists(ctx)
	if s.events != nil {
		_ = s.events.PublishTripCreated(ctx, trip)
	}
	s.maybeGeocode(ctx, trip)

	return trip, nil
}

// Update validates and replaces an existing trip, including its destination
// sequence.
func (s *TripService) Update(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
	if trip.ID == "" {
		return nil, fmt.Errorf("trip id is required")
	}
	if err := validateTrip(trip); err != nil {
		return nil, err
	}

	if err := s.trips.Update(ctx, trip); err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}
	if err := s.trips.ReplaceDestinations(ctx, trip.ID, trip.Destinations); err != nil {
		return nil, fmt.Errorf("replace destinations: %w", err)
	}

	s.invalidate(ctx, trip.Slug)
	if s.events != nil {
		_ = s.events.PublishTripUpdated(ctx, trip)
	}
	s.maybeGeocode(ctx, trip)

	return trip, nil
}

// Delete removes a trip and everything hanging off it.
func (s *TripService) Delete(ctx context.Context, id string) error {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get trip: %w", err)
	}

	if err := s.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}

	s.invalidate(ctx, trip.Slug)
	if s.events != nil {
		_ = s.events.PublishTripDeleted(ctx, id)
	}
	return nil
}

// GetBySlug returns one trip with destinations and expenses loaded.
func (s *TripService) GetBySlug(ctx context.Context, slug string) (*domain.Trip, error) {
	cacheKey := "trips:slug:" + slug
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var trip domain.Trip
			if err := json.Unmarshal(data, &trip); err == nil {
				return &trip, nil
			}
		}
	}

	trip, err := s.trips.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(trip); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return trip, nil
}

// List returns all trips ordered by start date, newest first.
func (s *TripService) List(ctx context.Context) ([]domain.Trip, error) {
	cacheKey := "trips:all"
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var trips []domain.Trip
			if err := json.Unmarshal(data, &trips); err == nil {
				return trips, nil
			}
		}
	}

	trips, err := s.trips.List(ctx)
	if err != nil {
		return nil, err
	}

	// Trips change rarely; 5 minutes keeps the overview map snappy.
	if s.cache != nil {
		if data, err := json.Marshal(trips); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return trips, nil
}

// ListByYear returns trips whose start date falls in the given year.
func (s *TripService) ListByYear(ctx context.Context, year int) ([]domain.Trip, error) {
	if year < 1900 || year > 2200 {
		return nil, fmt.Errorf("implausible year %d", year)
	}
	return s.trips.ListByYear(ctx, year)
}

// Legs derives the route legs of a trip from consecutive destination pairs.
// A leg's mode is the arrival mode of the destination it leads to.
func (s *TripService) Legs(trip *domain.Trip) []domain.RouteLeg {
	if trip == nil || len(trip.Destinations) < 2 {
		return nil
	}
	legs := make([]domain.RouteLeg, 0, len(trip.Destinations)-1)
	for i := 1; i < len(trip.Destinations); i++ {
		mode := trip.Destinations[i].ArrivalMode
		if mode == "" {
			mode = domain.ModeNone
		}
		legs = append(legs, domain.RouteLeg{
			From: trip.Destinations[i-1].Location,
			To:   trip.Destinations[i].Location,
			Mode: mode,
		})
	}
	return legs
}

func (s *TripService) maybeGeocode(ctx context.Context, trip *domain.Trip) {
	if s.workflows == nil {
		return
	}
	for _, d := range trip.Destinations {
		if !d.Geocoded {
			if err := s.workflows.StartGeocodeTrip(ctx, trip.ID); err != nil {
				slog.Warn("geocode workflow start failed", "trip_id", trip.ID, "error", err)
			}
			return
		}
	}
}

func (s *TripService) invalidate(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, "trips:slug:"+slug)
	s.invalidateLists(ctx)
}

func (s *TripService) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, "trips:all")
	_ = s.cache.Delete(ctx, "stats:summary")
}

func validateTrip(trip *domain.Trip) error {
	if strings.TrimSpace(trip.Title) == "" {
		return fmt.Errorf("trip title must not be empty")
	}
	if len(trip.Destinations) < 2 {
		return fmt.Errorf("a trip needs at least two destinations (home and somewhere else)")
	}
	if !trip.EndDate.IsZero() && trip.EndDate.Before(trip.StartDate) {
		return fmt.Errorf("trip end date precedes start date")
	}
	for i, d := range trip.Destinations {
		if strings.TrimSpace(d.City) == "" {
			return fmt.Errorf("destination %d: city is required", i)
		}
		if d.Geocoded && !d.Location.InRange() {
			return fmt.Errorf("destination %d: coordinates out of range", i)
		}
		if d.ArrivalMode != "" && !d.ArrivalMode.IsValid() {
			return fmt.Errorf("destination %d: unknown transport mode %q", i, d.ArrivalMode)
		}
	}
	return nil
}

// slugify turns "Summer in Portugal 2024" into "summer-in-portugal-2024".
func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
