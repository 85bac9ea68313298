package ports

import (
	"context"

	"github.com/mvarga/waylog/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishTripCreated(ctx context.Context, trip *domain.Trip) error
	PublishTripUpdated(ctx context.Context, trip *domain.Trip) error
	PublishTripDeleted(ctx context.Context, tripID string) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Geocoder resolves a city/country pair to coordinates. Implementations
// call an external geocoding service; the worker invokes this from workflow
// activities so failures retry there.
type Geocoder interface {
	Forward(ctx context.Context, city, country string) (domain.GeoPoint, error)
}

// WorkflowStarter kicks off the asynchronous geocoding workflow for a trip
// whose destinations are missing coordinates. A nil starter means geocoding
// is disabled and ungeocoded destinations simply stay off the map.
type WorkflowStarter interface {
	StartGeocodeTrip(ctx context.Context, tripID string) error
}
