package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/mvarga/waylog/internal/adapters/geocode"
	natsadapter "github.com/mvarga/waylog/internal/adapters/nats"
	"github.com/mvarga/waylog/internal/adapters/postgres"
	"github.com/mvarga/waylog/internal/pkg/config"
	"github.com/mvarga/waylog/internal/workflows"
)

func main() {
	cfg, err := config.Load("waylog-geocoder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer publisher.Close()

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.GeocodeTripWorkflow)
	w.RegisterActivity(&workflows.GeocodeActivities{
		Trips:     postgres.NewTripRepo(db),
		Geocoder:  geocode.New(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent),
		Publisher: publisher,
	})

	log.Println("geocode worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
