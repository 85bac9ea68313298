package workflows

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mvarga/waylog/internal/core/domain"
	"github.com/mvarga/waylog/internal/core/ports"
	"github.com/mvarga/waylog/internal/pkg/metrics"
)

// GeocodeActivities holds the activity implementations for the geocode workflow.
type GeocodeActivities struct {
	Trips     ports.TripRepository
	Geocoder  ports.Geocoder
	Publisher ports.EventPublisher
}

// ListUngeocodedDestinations returns the destinations of a trip that still
// need coordinates.
func (a *GeocodeActivities) ListUngeocodedDestinations(ctx context.Context, tripID string) ([]PendingDestination, error) {
	trip, err := a.Trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("load trip %s: %w", tripID, err)
	}

	var pending []PendingDestination
	for _, dest := range trip.Destinations {
		if dest.Geocoded {
			continue
		}
		pending = append(pending, PendingDestination{
			ID:      dest.ID,
			City:    dest.City,
			Country: dest.Country,
		})
	}
	return pending, nil
}

// ForwardGeocode resolves a city/country pair to coordinates.
func (a *GeocodeActivities) ForwardGeocode(ctx context.Context, city, country string) (ResolvedLocation, error) {
	point, err := a.Geocoder.Forward(ctx, city, country)
	if err != nil {
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return ResolvedLocation{}, fmt.Errorf("geocode %s, %s: %w", city, country, err)
	}
	metrics.GeocodeRequests.WithLabelValues("ok").Inc()
	return ResolvedLocation{Lat: point.Lat, Lon: point.Lon}, nil
}

// SaveDestinationLocation persists the resolved coordinates.
func (a *GeocodeActivities) SaveDestinationLocation(ctx context.Context, destinationID string, loc ResolvedLocation) error {
	err := a.Trips.UpdateDestinationLocation(ctx, destinationID, domain.GeoPoint{Lat: loc.Lat, Lon: loc.Lon})
	if err != nil {
		return fmt.Errorf("save location for destination %s: %w", destinationID, err)
	}
	return nil
}

// NotifyTripUpdated republishes the trip so live map sessions refresh.
func (a *GeocodeActivities) NotifyTripUpdated(ctx context.Context, tripID string) error {
	trip, err := a.Trips.GetByID(ctx, tripID)
	if err != nil {
		return fmt.Errorf("reload trip %s: %w", tripID, err)
	}
	if err := a.Publisher.PublishTripUpdated(ctx, trip); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{"type": "trip_geocoded", "slug": trip.Slug})
	if err != nil {
		return err
	}
	return a.Publisher.PublishBroadcast(ctx, payload)
}
