package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/mvarga/waylog/internal/workflows"
)

// Starter implements ports.WorkflowStarter with a Temporal client.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter connects to Temporal.
func NewStarter(hostPort, namespace, taskQueue string) (*Starter, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return &Starter{client: c, taskQueue: taskQueue}, nil
}

// StartGeocodeTrip launches the geocoding workflow for a trip. The workflow
// ID is derived from the trip so a rapid re-edit replaces the previous run
// instead of racing it.
func (s *Starter) StartGeocodeTrip(ctx context.Context, tripID string) error {
	opts := client.StartWorkflowOptions{
		ID:                    "geocode-trip-" + tripID,
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_TERMINATE_IF_RUNNING,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, workflows.GeocodeTripWorkflow,
		workflows.GeocodeTripInput{TripID: tripID})
	if err != nil {
		return fmt.Errorf("start geocode workflow for trip %s: %w", tripID, err)
	}
	return nil
}

// Close releases the Temporal client.
func (s *Starter) Close() {
	s.client.Close()
}
