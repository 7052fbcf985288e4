package events

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Handler receives notifications. Handlers run synchronously on the notifying
// goroutine, in subscription order.
type Handler func(ctx context.Context, event Event)

type subscription struct {
	id      int
	handler Handler
}

// Notifier fans events out to subscribed handlers. A handler that panics is
// logged and skipped; the remaining handlers still receive the event.
type Notifier struct {
	logger        *slog.Logger
	mu            sync.RWMutex
	nextID        int
	subscriptions []subscription
}

func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{logger: logger.With("component", "notifier")}
}

// Subscribe registers a handler and returns a function removing it.
func (n *Notifier) Subscribe(handler Handler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.subscriptions = append(n.subscriptions, subscription{id: id, handler: handler})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		n.subscriptions = slices.DeleteFunc(n.subscriptions, func(s subscription) bool { return s.id == id })
	}
}

// Notify delivers the event to every handler.
func (n *Notifier) Notify(ctx context.Context, event Event) {
	n.mu.RLock()
	subscriptions := slices.Clone(n.subscriptions)
	n.mu.RUnlock()

	for _, s := range subscriptions {
		n.deliver(ctx, s, event)
	}
}

// Len returns the number of subscribed handlers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return len(n.subscriptions)
}

func (n *Notifier) deliver(ctx context.Context, s subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.ErrorContext(ctx, "Event handler panicked",
				"subscription", s.id,
				"event_type", event.GetType(),
				"error", fmt.Sprint(r))
		}
	}()

	s.handler(ctx, event)
}
