package eventbus

import (
	"context"
	"log/slog"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/events"
)

// Forward returns a notifier handler that publishes every event to bus.
// Publish failures are logged and dropped.
func Forward(bus EventPublisher, logger *slog.Logger) events.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, event events.Event) {
		if err := bus.Publish(ctx, PartitionKey(event), event); err != nil {
			logger.WarnContext(ctx, "Failed to forward event", "event_type", event.GetType(), "error", err)
		}
	}
}

// PartitionKey keeps the events of one run, or of one edited node, in order on
// a partitioned broker.
func PartitionKey(event events.Event) string {
	switch e := event.(type) {
	case events.ExecutionStarted:
		return e.RunID
	case events.ExecutionFinished:
		return e.RunID
	case events.NodeStateChanged:
		return e.RunID
	case events.GraphChanged:
		if e.NodeID != "" {
			return e.NodeID
		}

		return e.SourceID
	default:
		return string(event.GetType())
	}
}
