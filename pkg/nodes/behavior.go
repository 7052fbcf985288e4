package nodes

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
)

// Logic is the business logic of a node kind. vars is the execution context;
// when it is empty the plain form of the logic runs.
type Logic func(node *models.Node, vars map[string]string) (string, error)

// LogicFor returns the business logic of a kind.
func LogicFor(kind models.NodeKind) (Logic, error) {
	switch kind {
	case models.KindStart:
		return marker("workflow started"), nil
	case models.KindEnd:
		return marker("workflow reached its end"), nil
	case models.KindData:
		return marker("data source available"), nil
	case models.KindOutput:
		return marker("output collected"), nil
	case models.KindTask:
		return runTask, nil
	case models.KindCondition:
		return runCondition, nil
	case models.KindPrediction:
		return runPrediction, nil
	case models.KindAnalysis:
		return runAnalysis, nil
	case models.KindTraining:
		return runTraining, nil
	case models.KindValidation:
		return stage("validating model", "validation accuracy=0.89"), nil
	case models.KindTesting:
		return stage("testing model on held-out data", "test accuracy=0.87"), nil
	case models.KindPreprocessing:
		return runPreprocessing, nil
	case models.KindFeatureEngineering:
		return stage("engineering features", "features derived"), nil
	case models.KindModelSelection:
		return runModelSelection, nil
	case models.KindEvaluation:
		return runEvaluation, nil
	case models.KindInference:
		return runInference, nil
	case models.KindClustering:
		return runClustering, nil
	case models.KindGNNModule:
		return stage("propagating messages through graph layers", "node embeddings updated"), nil
	case models.KindEnsemble:
		return runEnsemble, nil
	case models.KindMonitoring:
		return stage("collecting system status and metrics", "monitoring snapshot taken"), nil
	case models.KindExplainability:
		return stage("computing feature attributions", "explanations generated"), nil
	case models.KindHyperparameterTuning:
		return stage("searching hyperparameter space", "best trial selected"), nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownKind, kind)
	}
}

// IsValid applies the validity rule of the node kind. Kinds carrying a payload
// require it to be non-blank; every other kind is always valid.
func IsValid(node *models.Node) bool {
	if node == nil || !node.Kind.Valid() {
		return false
	}

	if !HasPayload(node.Kind) {
		return true
	}

	if node.Kind == models.KindCondition && node.Condition != nil && strings.TrimSpace(node.Condition.Expression) != "" {
		return true
	}

	return strings.TrimSpace(node.Details) != ""
}

// ValidateOperation reports whether the node supports a named operation.
// TRAINING supports "train", INFERENCE supports every operation and all other
// kinds support none.
func ValidateOperation(node *models.Node, operation string) error {
	switch node.Kind {
	case models.KindInference:
		return nil
	case models.KindTraining:
		if strings.EqualFold(operation, "train") {
			return nil
		}
	}

	return fmt.Errorf("%w: %q by node %s", ErrUnsupportedOperation, operation, node.Name)
}

// Expression returns the condition expression of a CONDITION node.
func Expression(node *models.Node) string {
	if node.Condition != nil && node.Condition.Expression != "" {
		return node.Condition.Expression
	}

	return node.Details
}

// Runner runs node business logic through the kind table.
type Runner struct{}

// Run executes the logic of the node kind.
func (Runner) Run(_ context.Context, node *models.Node, vars map[string]string) (string, error) {
	logic, err := LogicFor(node.Kind)
	if err != nil {
		return "", err
	}

	return logic(node, vars)
}

func marker(message string) Logic {
	return func(node *models.Node, _ map[string]string) (string, error) {
		return fmt.Sprintf("%s: %s", node.Name, message), nil
	}
}

func stage(plain, contextual string) Logic {
	return func(node *models.Node, vars map[string]string) (string, error) {
		if len(vars) == 0 {
			return fmt.Sprintf("%s: %s", node.Name, plain), nil
		}

		return fmt.Sprintf("%s: %s with context %s", node.Name, contextual, formatVars(vars)), nil
	}
}

func runTask(node *models.Node, vars map[string]string) (string, error) {
	if len(vars) == 0 {
		return fmt.Sprintf("executing task %s -> %s", node.Name, node.Details), nil
	}

	return fmt.Sprintf("task %s executed with context %s", node.Name, formatVars(vars)), nil
}

func runCondition(node *models.Node, vars map[string]string) (string, error) {
	result := models.ConditionInterpreter{}.Evaluate(Expression(node), vars)

	return fmt.Sprintf("condition %q evaluated to %t", Expression(node), result), nil
}

func runPrediction(node *models.Node, vars map[string]string) (string, error) {
	if len(vars) == 0 {
		return fmt.Sprintf("running prediction with model %s", node.Details), nil
	}

	return fmt.Sprintf("prediction with model %s and context %s", node.Details, formatVars(vars)), nil
}

func runAnalysis(node *models.Node, _ map[string]string) (string, error) {
	return fmt.Sprintf("performing %s analysis on %s", node.Details, node.Name), nil
}

func runTraining(node *models.Node, vars map[string]string) (string, error) {
	if len(vars) == 0 {
		return fmt.Sprintf("training %s: epochs=5 final_loss=0.134", node.Name), nil
	}

	return fmt.Sprintf("training %s with context %s: accuracy=0.92", node.Name, formatVars(vars)), nil
}

func runPreprocessing(node *models.Node, _ map[string]string) (string, error) {
	return fmt.Sprintf("preprocessing %s with steps %s", node.Name, node.Details), nil
}

func runModelSelection(node *models.Node, _ map[string]string) (string, error) {
	return fmt.Sprintf("selecting model for %s by %s", node.Name, node.Details), nil
}

func runEvaluation(node *models.Node, _ map[string]string) (string, error) {
	return fmt.Sprintf("evaluating %s using metric %s", node.Name, node.Details), nil
}

func runEnsemble(node *models.Node, _ map[string]string) (string, error) {
	return fmt.Sprintf("combining models in %s using %s", node.Name, node.Details), nil
}

func runClustering(node *models.Node, vars map[string]string) (string, error) {
	dataset, ok := vars["dataset"]
	if !ok {
		dataset = "Unknown Dataset"
	}

	return fmt.Sprintf("clustering applied on %s using method %s", dataset, node.Details), nil
}

// runInference requires modelName and inputData whenever a context is given.
func runInference(node *models.Node, vars map[string]string) (string, error) {
	if len(vars) == 0 {
		return fmt.Sprintf("%s: generating predictions from trained model", node.Name), nil
	}

	modelName := strings.TrimSpace(vars["modelName"])
	if modelName == "" {
		return "", fmt.Errorf("%w: modelName", ErrMissingContext)
	}

	inputData := strings.TrimSpace(vars["inputData"])
	if inputData == "" {
		return "", fmt.Errorf("%w: inputData", ErrMissingContext)
	}

	return fmt.Sprintf("inference executed using model %s with input %s", modelName, inputData), nil
}

func formatVars(vars map[string]string) string {
	keys := slices.Sorted(maps.Keys(vars))

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+vars[key])
	}

	return "{" + strings.Join(pairs, ", ") + "}"
}
