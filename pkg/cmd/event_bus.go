package cmd

import (
	"fmt"
	"log/slog"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/channels/gochannel"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/channels/kafka"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/eventbus"
	"github.com/ThreeDotsLabs/watermill"
)

// NewEventBus creates the event bus for provider. Kafka brokers come from
// KAFKA_BROKERS.
func NewEventBus(provider, serviceName string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, err
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, kafka.ConfigFromEnv(serviceName))
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
