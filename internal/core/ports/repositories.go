package ports

import (
	"context"

	"github.com/mvarga/waylog/internal/core/domain"
)

// TripRepository persists trips, destinations, and expenses.
type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error
	Update(ctx context.Context, trip *domain.Trip) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Trip, error)
	List(ctx context.Context) ([]domain.Trip, error)
	ListByYear(ctx context.Context, year int) ([]domain.Trip, error)
	// ReplaceDestinations swaps a trip's destination sequence atomically.
	ReplaceDestinations(ctx context.Context, tripID string, destinations []domain.Destination) error
	// UpdateDestinationLocation sets resolved coordinates on a single
	// destination (used by the geocoding worker).
	UpdateDestinationLocation(ctx context.Context, destinationID string, loc domain.GeoPoint) error
}

// SessionRepository persists admin sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}
