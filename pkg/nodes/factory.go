// Package nodes builds workflow nodes and holds the business logic of every node kind.
package nodes

import (
	"log/slog"
	"strings"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/google/uuid"
)

// Names given to nodes created by the short factory forms.
const (
	AutoName    = "AUTO_NAME"
	UnnamedNode = "Unnamed Node"
)

// Factory creates nodes of every kind.
type Factory struct {
	logger *slog.Logger
	newID  func() string
}

// NewFactory returns a factory that generates UUIDs for auto-identified nodes.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}

	return &Factory{
		logger: logger.With("component", "node_factory"),
		newID:  func() string { return "AUTO_ID_" + uuid.NewString() },
	}
}

// Create builds a node from a kind specific payload and rejects it when the
// kind validity rule fails.
//
// The payload is the condition expression for CONDITION, the model name for
// PREDICTION, the analysis type for ANALYSIS, the steps for PREPROCESSING, the
// selection criteria for MODEL_SELECTION, the metric for EVALUATION, the method
// for CLUSTERING, the strategy for ENSEMBLE and the task details for TASK. The
// remaining ML stages take it as their description, and flow markers, DATA and
// OUTPUT ignore it.
func (f *Factory) Create(kind models.NodeKind, id, name, payload string) (*models.Node, error) {
	node, err := newNode(kind, id, name)
	if err != nil {
		return nil, err
	}

	switch {
	case HasPayload(kind):
		node.Details = payload
	case acceptsDescription(kind):
		node.Description = payload
	}

	switch kind {
	case models.KindCondition:
		node.Condition = &models.Condition{Expression: payload}
		node.Description = "Generated condition"
	case models.KindPrediction:
		node.Description = "Generated prediction"
	}

	if !IsValid(node) {
		f.logger.Warn("node failed validation", "kind", kind, "id", id, "name", name)

		return nil, &ConstructionError{Kind: kind, ID: id, Name: name, Err: ErrNodeInvalid}
	}

	return node, nil
}

// CreateDefault builds a node with the default payload of its kind. The
// validity rule is not applied, so kinds without a default payload (CONDITION,
// PREDICTION and CLUSTERING) come back invalid.
func (f *Factory) CreateDefault(kind models.NodeKind, id, name string) (*models.Node, error) {
	node, err := newNode(kind, id, name)
	if err != nil {
		return nil, err
	}

	node.Details = DefaultPayload(kind)

	if kind == models.KindCondition {
		node.Condition = &models.Condition{}
	}

	return node, nil
}

// CreateWithID builds a default node named "Unnamed Node".
func (f *Factory) CreateWithID(kind models.NodeKind, id string) (*models.Node, error) {
	return f.CreateDefault(kind, id, UnnamedNode)
}

// CreateAuto builds a default node with a generated ID named "AUTO_NAME".
func (f *Factory) CreateAuto(kind models.NodeKind) (*models.Node, error) {
	return f.CreateDefault(kind, f.NextID(), AutoName)
}

// NextID returns a fresh generated node ID.
func (f *Factory) NextID() string {
	return f.newID()
}

// DefaultPayload returns the payload used by CreateDefault.
func DefaultPayload(kind models.NodeKind) string {
	switch kind {
	case models.KindTask:
		return "Default Task Details"
	case models.KindAnalysis:
		return "Statistical"
	case models.KindPreprocessing:
		return "default"
	case models.KindModelSelection, models.KindEvaluation:
		return "accuracy"
	case models.KindEnsemble:
		return "Default strategy"
	default:
		return ""
	}
}

// HasPayload reports whether the kind stores its payload in Node.Details.
func HasPayload(kind models.NodeKind) bool {
	switch kind {
	case models.KindTask, models.KindCondition, models.KindPrediction, models.KindAnalysis,
		models.KindPreprocessing, models.KindModelSelection, models.KindEvaluation,
		models.KindClustering, models.KindEnsemble:
		return true
	default:
		return false
	}
}

func acceptsDescription(kind models.NodeKind) bool {
	switch kind {
	case models.KindTraining, models.KindValidation, models.KindTesting,
		models.KindFeatureEngineering, models.KindInference, models.KindGNNModule,
		models.KindMonitoring, models.KindExplainability, models.KindHyperparameterTuning:
		return true
	default:
		return false
	}
}

func newNode(kind models.NodeKind, id, name string) (*models.Node, error) {
	if !kind.Valid() {
		return nil, &ConstructionError{Kind: kind, ID: id, Name: name, Err: models.ErrUnknownKind}
	}

	if strings.TrimSpace(id) == "" {
		return nil, &ConstructionError{Kind: kind, ID: id, Name: name, Err: ErrNodeInvalid}
	}

	return &models.Node{
		ID:   id,
		Name: name,
		Kind: kind,
	}, nil
}
