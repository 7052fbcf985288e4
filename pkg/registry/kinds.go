package registry

import (
	"strings"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
)

func cssPrefix(kind models.NodeKind) string {
	switch kind {
	case models.KindStart, models.KindEnd:
		return "start-end"
	case models.KindHyperparameterTuning:
		return "hyperparameter"
	case models.KindFeatureEngineering:
		return "feature-engineering"
	case models.KindModelSelection:
		return "model-selection"
	case models.KindGNNModule:
		return "gnn-module"
	default:
		return strings.ReplaceAll(strings.ToLower(string(kind)), "_", "-")
	}
}

func sidebarColor(kind models.NodeKind) string {
	switch kind {
	case models.KindTask:
		return "#e3fce3"
	case models.KindCondition, models.KindFeatureEngineering:
		return "#fff8e1"
	case models.KindPrediction, models.KindModelSelection:
		return "#e8eaf6"
	case models.KindAnalysis:
		return "#f3e5f5"
	case models.KindStart, models.KindEnd:
		return "#e0f2f1"
	case models.KindData, models.KindClustering:
		return "#e0f7fa"
	case models.KindOutput, models.KindHyperparameterTuning:
		return "#fce4ec"
	case models.KindTraining:
		return "#ffe0b2"
	case models.KindValidation, models.KindEnsemble:
		return "#f1f8e9"
	case models.KindTesting, models.KindMonitoring:
		return "#cfd8dc"
	case models.KindPreprocessing:
		return "#e3f2fd"
	case models.KindEvaluation:
		return "#efebe9"
	case models.KindInference, models.KindGNNModule:
		return "#ede7f6"
	case models.KindExplainability:
		return "#f9fbe7"
	default:
		return "#ffffff"
	}
}

func payloadLabel(kind models.NodeKind) string {
	switch kind {
	case models.KindTask:
		return "Task details"
	case models.KindCondition:
		return "Condition expression"
	case models.KindPrediction:
		return "Model name"
	case models.KindAnalysis:
		return "Analysis type"
	case models.KindPreprocessing:
		return "Preprocessing steps"
	case models.KindModelSelection:
		return "Selection criteria"
	case models.KindEvaluation:
		return "Evaluation metric"
	case models.KindClustering:
		return "Clustering method"
	case models.KindEnsemble:
		return "Ensemble strategy"
	case models.KindStart, models.KindEnd, models.KindData, models.KindOutput:
		return ""
	default:
		return "Description"
	}
}
