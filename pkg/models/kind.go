// Package models defines the core domain models for the workflow graph.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when a node kind string does not name a known kind.
var ErrUnknownKind = errors.New("unknown node kind")

// NodeKind is the closed set of node types a workflow graph may contain.
type NodeKind string

const (
	// Flow markers.
	KindStart NodeKind = "START"
	KindEnd   NodeKind = "END"

	// Generic nodes.
	KindTask       NodeKind = "TASK"
	KindCondition  NodeKind = "CONDITION"
	KindPrediction NodeKind = "PREDICTION"
	KindAnalysis   NodeKind = "ANALYSIS"
	KindData       NodeKind = "DATA"
	KindOutput     NodeKind = "OUTPUT"

	// ML pipeline stages.
	KindTraining             NodeKind = "TRAINING"
	KindValidation           NodeKind = "VALIDATION"
	KindTesting              NodeKind = "TESTING"
	KindPreprocessing        NodeKind = "PREPROCESSING"
	KindFeatureEngineering   NodeKind = "FEATURE_ENGINEERING"
	KindModelSelection       NodeKind = "MODEL_SELECTION"
	KindEvaluation           NodeKind = "EVALUATION"
	KindInference            NodeKind = "INFERENCE"
	KindClustering           NodeKind = "CLUSTERING"
	KindGNNModule            NodeKind = "GNN_MODULE"
	KindEnsemble             NodeKind = "ENSEMBLE"
	KindMonitoring           NodeKind = "MONITORING"
	KindExplainability       NodeKind = "EXPLAINABILITY"
	KindHyperparameterTuning NodeKind = "HYPERPARAMETER_TUNING"
)

var displayNames = map[NodeKind]string{
	KindTask:                 "Task",
	KindCondition:            "Condition",
	KindPrediction:           "Prediction",
	KindAnalysis:             "Analysis",
	KindStart:                "Start",
	KindEnd:                  "End",
	KindData:                 "Data",
	KindOutput:               "Output",
	KindTraining:             "Training",
	KindValidation:           "Validation",
	KindTesting:              "Testing",
	KindPreprocessing:        "Preprocessing",
	KindFeatureEngineering:   "Feature Engineering",
	KindModelSelection:       "Model Selection",
	KindEvaluation:           "Evaluation",
	KindInference:            "Inference",
	KindClustering:           "Clustering",
	KindGNNModule:            "GNN Module",
	KindEnsemble:             "Ensemble",
	KindMonitoring:           "Monitoring",
	KindExplainability:       "Explainability",
	KindHyperparameterTuning: "Hyperparameter Tuning",
}

// Kinds returns every node kind in declaration order.
func Kinds() []NodeKind {
	return []NodeKind{
		KindTask, KindCondition, KindPrediction, KindAnalysis,
		KindStart, KindEnd, KindData, KindOutput,
		KindTraining, KindValidation, KindTesting, KindPreprocessing,
		KindFeatureEngineering, KindModelSelection, KindEvaluation, KindInference,
		KindClustering, KindGNNModule, KindEnsemble, KindMonitoring,
		KindExplainability, KindHyperparameterTuning,
	}
}

// ParseKind resolves a kind name case-insensitively. Spaces are accepted in
// place of underscores so display names parse as well.
func ParseKind(value string) (NodeKind, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), " ", "_"))

	kind := NodeKind(normalized)
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
	}

	return kind, nil
}

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	_, ok := displayNames[k]

	return ok
}

// DisplayName returns the human readable label of the kind.
func (k NodeKind) DisplayName() string {
	if name, ok := displayNames[k]; ok {
		return name
	}

	return string(k)
}

// IsPassive reports whether the engine traverses nodes of this kind without
// running their business logic.
func (k NodeKind) IsPassive() bool {
	switch k {
	case KindStart, KindEnd, KindData, KindOutput:
		return true
	default:
		return false
	}
}

func (k NodeKind) String() string {
	return string(k)
}
