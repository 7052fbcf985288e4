// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/execution"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/validation"
)

// CreateNodeRequest represents the request body for creating a node. An empty
// ID is generated.
type CreateNodeRequest struct {
	Type        string            `json:"type"                  validate:"required"`
	ID          string            `json:"id,omitempty"          validate:"omitempty,max=128"`
	Name        string            `json:"name,omitempty"`
	Payload     string            `json:"payload,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	X           float64           `json:"x"`
	Y           float64           `json:"y"`
}

// MoveNodeRequest represents the request body for moving a node on the canvas.
type MoveNodeRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ConnectRequest represents the request body for linking two nodes.
type ConnectRequest struct {
	SourceID string `json:"source_id"       validate:"required"`
	TargetID string `json:"target_id"       validate:"required"`
	Label    string `json:"label,omitempty" validate:"max=64"`
}

// ValidateRequest selects the nodes to validate. Without a start ID the whole
// workflow is validated from every START node.
type ValidateRequest struct {
	StartID string   `json:"start_id,omitempty"`
	NodeIDs []string `json:"node_ids,omitempty" validate:"required_with=StartID,dive,required"`
}

// ExecuteRequest represents the request body for running from chosen start nodes.
type ExecuteRequest struct {
	StartIDs  []string          `json:"start_ids"           validate:"required,min=1,dive,required"`
	Variables map[string]string `json:"variables,omitempty"`
}

// RunRequest represents the request body for validating and running the whole workflow.
type RunRequest struct {
	Variables map[string]string `json:"variables,omitempty"`
}

// NodeResponse represents a node on the canvas.
type NodeResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	X           float64           `json:"x"`
	Y           float64           `json:"y"`
	Details     string            `json:"details,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Condition   string            `json:"condition,omitempty"`
	YesTarget   string            `json:"yes_target,omitempty"`
	NoTarget    string            `json:"no_target,omitempty"`
}

// TransformNodeResponse flattens a node for API clients.
func TransformNodeResponse(node *models.Node) NodeResponse {
	response := NodeResponse{
		ID:          node.ID,
		Name:        node.Name,
		Type:        string(node.Kind),
		X:           node.Position.X,
		Y:           node.Position.Y,
		Details:     node.Details,
		Description: node.Description,
		Metadata:    node.Metadata,
	}

	// Only CONDITION nodes carry branching data
	if node.Condition != nil {
		response.Condition = node.Condition.Expression
		response.YesTarget = node.Condition.YesTarget
		response.NoTarget = node.Condition.NoTarget
	}

	return response
}

// ConnectionResponse represents a directed edge.
type ConnectionResponse struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Label    string `json:"label,omitempty"`
}

func TransformConnectionResponse(conn models.Connection) ConnectionResponse {
	return ConnectionResponse{
		SourceID: conn.SourceID,
		TargetID: conn.TargetID,
		Label:    conn.Label,
	}
}

// ValidationResponse carries the outcome of a validation.
type ValidationResponse struct {
	Valid       bool                    `json:"valid"`
	Diagnostics []validation.Diagnostic `json:"diagnostics"`
}

// ExecutionResponse carries every event of a run.
type ExecutionResponse struct {
	Events  []execution.Event `json:"events"`
	Summary execution.Summary `json:"summary"`
	Outcome string            `json:"outcome"`
}

// HistoryResponse reports an undo or redo.
type HistoryResponse struct {
	Applied   bool   `json:"applied"`
	Action    string `json:"action,omitempty"`
	UndoDepth int    `json:"undo_depth"`
	RedoDepth int    `json:"redo_depth"`
}
