package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// TaskQueue is the queue geocode workers poll.
const TaskQueue = "geocode-queue"

// GeocodeTripInput is the input for the geocoding workflow.
type GeocodeTripInput struct {
	TripID string
}

// PendingDestination identifies a destination awaiting coordinates.
type PendingDestination struct {
	ID      string
	City    string
	Country string
}

// ResolvedLocation is a geocoder hit for a destination.
type ResolvedLocation struct {
	Lat float64
	Lon float64
}

// GeocodeTripWorkflow resolves coordinates for every destination of a trip
// that was saved without them. Individual lookup failures skip that
// destination rather than failing the whole trip; the map simply leaves
// unresolved stops out until a later edit retriggers the workflow.
func GeocodeTripWorkflow(ctx workflow.Context, input GeocodeTripInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting geocode workflow", "tripID", input.TripID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 2 * time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var pending []PendingDestination
	if err := workflow.ExecuteActivity(ctx, "ListUngeocodedDestinations", input.TripID).Get(ctx, &pending); err != nil {
		return err
	}
	if len(pending) == 0 {
		logger.Info("Nothing to geocode", "tripID", input.TripID)
		return nil
	}

	resolved := 0
	for _, dest := range pending {
		var loc ResolvedLocation
		err := workflow.ExecuteActivity(ctx, "ForwardGeocode", dest.City, dest.Country).Get(ctx, &loc)
		if err != nil {
			logger.Warn("geocode lookup failed, skipping destination",
				"destinationID", dest.ID, "city", dest.City, "error", err)
			continue
		}
		if err := workflow.ExecuteActivity(ctx, "SaveDestinationLocation", dest.ID, loc).Get(ctx, nil); err != nil {
			return err
		}
		resolved++

		// Public geocoders rate-limit aggressively; pace lookups.
		if err := workflow.Sleep(ctx, time.Second); err != nil {
			return err
		}
	}

	if resolved > 0 {
		if err := workflow.ExecuteActivity(ctx, "NotifyTripUpdated", input.TripID).Get(ctx, nil); err != nil {
			logger.Warn("trip update notification failed", "tripID", input.TripID, "error", err)
		}
	}

	logger.Info("Geocode workflow finished", "tripID", input.TripID, "resolved", resolved, "pending", len(pending))
	return nil
}
