// Package events defines the notifications emitted by the workflow core.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every workflow event on the external event bus.
const Topic = "workflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution events.
	ExecutionStartedEvent  EventType = "execution.started"
	ExecutionFinishedEvent EventType = "execution.finished"
	NodeStateChangedEvent  EventType = "node.state_changed"

	// Editing events.
	GraphChangedEvent        EventType = "graph.changed"
	ValidationCompletedEvent EventType = "validation.completed"
)

// Types lists every event type the core emits.
func Types() []EventType {
	return []EventType{
		ExecutionStartedEvent,
		ExecutionFinishedEvent,
		NodeStateChangedEvent,
		GraphChangedEvent,
		ValidationCompletedEvent,
	}
}

// Event is implemented by every notification.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a new event with an ID and the current time.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

type ExecutionStarted struct {
	BaseEvent

	RunID    string   `json:"run_id"`
	StartIDs []string `json:"start_ids"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionFinished struct {
	BaseEvent

	RunID     string        `json:"run_id"`
	Done      int           `json:"done"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

func (e ExecutionFinished) GetType() EventType {
	return ExecutionFinishedEvent
}

// NodeStateChanged reports a node moving through READY, RUNNING and a
// terminal state during a run.
type NodeStateChanged struct {
	BaseEvent

	RunID    string `json:"run_id"`
	NodeID   string `json:"node_id"`
	NodeKind string `json:"node_kind,omitempty"`
	State    string `json:"state"`
	Message  string `json:"message,omitempty"`
}

func (e NodeStateChanged) GetType() EventType {
	return NodeStateChangedEvent
}

// GraphChanged reports an applied, undone or redone edit.
type GraphChanged struct {
	BaseEvent

	Action   string `json:"action"`
	NodeID   string `json:"node_id,omitempty"`
	SourceID string `json:"source_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Undo     bool   `json:"undo,omitempty"`
}

func (e GraphChanged) GetType() EventType {
	return GraphChangedEvent
}

type ValidationCompleted struct {
	BaseEvent

	OK       bool `json:"ok"`
	Errors   int  `json:"errors"`
	Warnings int  `json:"warnings"`
}

func (e ValidationCompleted) GetType() EventType {
	return ValidationCompletedEvent
}
