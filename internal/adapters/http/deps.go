package http

import (
	"github.com/nats-io/nats.go"

	"github.com/mvarga/waylog/internal/adapters/postgres"
	"github.com/mvarga/waylog/internal/adapters/valkey"
	"github.com/mvarga/waylog/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Trips *usecases.TripService
	Stats *usecases.StatsService
	Maps  *usecases.MapService
	Auth  *usecases.AuthService
	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache
}
