package execution

import "github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"

// State of a node within a run.
type State string

const (
	StateReady     State = "READY"
	StateRunning   State = "RUNNING"
	StateDone      State = "DONE"
	StateFailed    State = "FAILED"
	StateSkipped   State = "SKIPPED"
	StateCancelled State = "CANCELLED"
)

// Terminal reports whether no further event follows for the node in this run.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateFailed, StateSkipped, StateCancelled:
		return true
	default:
		return false
	}
}

// Event is one step of a run.
type Event struct {
	NodeID  string `json:"node_id"`
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
}

// Summary tallies the terminal states of a run.
type Summary struct {
	Done      int  `json:"done"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
	Cancelled bool `json:"cancelled"`
}

// Add counts a terminal event.
func (s *Summary) Add(event Event) {
	switch event.State {
	case StateDone:
		s.Done++
	case StateFailed:
		s.Failed++
	case StateSkipped:
		s.Skipped++
	case StateCancelled:
		s.Cancelled = true
	}
}

// Outcome names the run result for metrics and logs.
func (s Summary) Outcome() string {
	switch {
	case s.Cancelled:
		return "cancelled"
	case s.Failed > 0:
		return "failed"
	default:
		return "completed"
	}
}

// Skip messages.
const (
	messagePassive = "passive node, logic not executed"
	messageVisited = "already visited in this run"
)

func passiveMessage(node *models.Node) string {
	return node.Kind.DisplayName() + ": " + messagePassive
}
