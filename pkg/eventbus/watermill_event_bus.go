package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/events"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	logger        *slog.Logger
	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	if logger == nil {
		logger = slog.Default()
	}

	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		logger:        logger.With("module", "event_bus"),
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eb.dispatch(ctx, msg)
		}
	}()

	return nil
}

func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, exists := eb.subscriptions[eventType]
	eb.mu.RUnlock()

	if !exists {
		msg.Ack()

		return
	}

	event, err := decode(eventType, msg.Payload)
	if err != nil {
		eb.logger.ErrorContext(ctx, "Failed to decode event", "message_id", msg.UUID, "event_type", eventType, "error", err)
		msg.Nack()

		return
	}

	if err := handler(ctx, event); err != nil {
		eb.logger.WarnContext(ctx, "Event handler failed", "message_id", msg.UUID, "event_type", eventType, "error", err)
		msg.Nack()

		return
	}

	msg.Ack()
}

// decode returns the concrete event value for eventType.
func decode(eventType events.EventType, payload []byte) (Event, error) {
	switch eventType {
	case events.ExecutionStartedEvent:
		return unmarshal[events.ExecutionStarted](payload)
	case events.ExecutionFinishedEvent:
		return unmarshal[events.ExecutionFinished](payload)
	case events.NodeStateChangedEvent:
		return unmarshal[events.NodeStateChanged](payload)
	case events.GraphChangedEvent:
		return unmarshal[events.GraphChanged](payload)
	case events.ValidationCompletedEvent:
		return unmarshal[events.ValidationCompleted](payload)
	default:
		return nil, &UnknownEventError{EventType: eventType}
	}
}

func unmarshal[T Event](payload []byte) (Event, error) {
	var event T
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	return event, nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}

// UnknownEventError is returned for a message whose event type has no decoder.
type UnknownEventError struct {
	EventType events.EventType
}

func (e *UnknownEventError) Error() string {
	return "unknown event type " + string(e.EventType)
}
