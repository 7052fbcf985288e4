// Package validation checks a workflow graph before it is executed.
package validation

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/graph"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/nodes"
)

// requiredOutDegree holds the exact number of outgoing connections a kind needs.
var requiredOutDegree = map[models.NodeKind]int{
	models.KindTask:       1,
	models.KindPrediction: 1,
	models.KindCondition:  2,
}

// Validator runs the structural rules over a graph. It never mutates the graph.
type Validator struct {
	graph  *graph.Graph
	logger *slog.Logger
}

func New(g *graph.Graph, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Validator{
		graph:  g,
		logger: logger.With("component", "validator"),
	}
}

// Validate checks the nodes in nodeIDs, with reachability measured from
// startID. ok is false when at least one error diagnostic is produced.
func (v *Validator) Validate(startID string, nodeIDs []string) (bool, []Diagnostic) {
	return v.validate([]string{startID}, nodeIDs)
}

// ValidateAll checks the whole graph from every START node.
func (v *Validator) ValidateAll() (bool, []Diagnostic) {
	starts := v.graph.FindStartNodes()
	if len(starts) == 0 {
		diagnostics := []Diagnostic{errorf(CodeNoStart, "", "workflow has no START node")}

		return false, append(diagnostics, v.structural(v.graph.NodeIDs())...)
	}

	startIDs := make([]string, 0, len(starts))
	for _, start := range starts {
		startIDs = append(startIDs, start.ID)
	}

	return v.validate(startIDs, v.graph.NodeIDs())
}

func (v *Validator) validate(startIDs, nodeIDs []string) (bool, []Diagnostic) {
	var diagnostics []Diagnostic

	known := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if !v.graph.Has(id) {
			diagnostics = append(diagnostics, errorf(CodeMissingNode, id, "node does not exist"))

			continue
		}

		known = append(known, id)
	}

	var roots []string
	for _, id := range startIDs {
		if !v.graph.Has(id) {
			diagnostics = append(diagnostics, errorf(CodeMissingStart, id, "start node does not exist"))

			continue
		}

		roots = append(roots, id)
	}

	if cycle := v.findCycle(append(slices.Clone(roots), known...)); cycle != nil {
		diagnostics = append(diagnostics, errorf(CodeCycle, cycle[0], "cycle detected: %s", strings.Join(cycle, " -> ")))
		v.logger.Debug("Workflow validation stopped at cycle", "cycle", cycle)

		return false, diagnostics
	}

	if len(roots) > 0 {
		reached := v.reachable(roots)
		for _, id := range known {
			if !reached[id] {
				diagnostics = append(diagnostics, warningf(CodeUnreachable, id, "node is not reachable from the start node"))
			}
		}
	}

	diagnostics = append(diagnostics, v.structural(known)...)

	ok := !HasErrors(diagnostics)
	v.logger.Debug("Workflow validated", "ok", ok, "nodes", len(known), "diagnostics", len(diagnostics))

	return ok, diagnostics
}

// structural applies the per-node rules: isolation, out-degree, branch labels
// and kind validity.
func (v *Validator) structural(ids []string) []Diagnostic {
	var diagnostics []Diagnostic

	for _, id := range ids {
		node := v.graph.MustFind(id)
		outgoing := v.graph.ConnectionsFrom(id)
		incoming := v.graph.ConnectionsTo(id)

		if len(outgoing) == 0 && len(incoming) == 0 {
			diagnostics = append(diagnostics, errorf(CodeUnconnected, id, "%s is not connected", node.Name))
		}

		if required, ok := requiredOutDegree[node.Kind]; ok && len(outgoing) != required {
			diagnostics = append(diagnostics, errorf(CodeOutDegree, id,
				"%s node %s must have exactly %d outgoing connection(s), found %d",
				node.Kind, node.Name, required, len(outgoing)))
		}

		if node.Kind == models.KindCondition && len(outgoing) == 2 {
			if d, ok := v.checkBranches(node); !ok {
				diagnostics = append(diagnostics, d)
			}
		}

		if !nodes.IsValid(node) {
			diagnostics = append(diagnostics, errorf(CodeInvalidNode, id, "%s node %s is missing its required configuration", node.Kind, node.Name))
		}
	}

	return diagnostics
}

// checkBranches requires both branches of a CONDITION node to be resolvable
// through branch targets or YES/NO labels, and both to lead along one of its
// own connections. Connection order is never used.
func (v *Validator) checkBranches(node *models.Node) (Diagnostic, bool) {
	yes, no := v.graph.BranchTargets(node.ID)

	switch {
	case yes == "" || no == "":
		return errorf(CodeAmbiguousBranches, node.ID, "condition %s needs one YES and one NO connection", node.Name), false
	case !v.connected(node.ID, yes):
		return errorf(CodeAmbiguousBranches, node.ID, "condition %s routes YES to %s, which is not one of its connections", node.Name, yes), false
	case !v.connected(node.ID, no):
		return errorf(CodeAmbiguousBranches, node.ID, "condition %s routes NO to %s, which is not one of its connections", node.Name, no), false
	case yes == no:
		return errorf(CodeAmbiguousBranches, node.ID, "condition %s routes YES and NO to the same node", node.Name), false
	default:
		return Diagnostic{}, true
	}
}

func (v *Validator) connected(sourceID, targetID string) bool {
	_, ok := v.graph.Connection(sourceID, targetID)

	return ok
}

// findCycle colours nodes depth first starting from each root in order and
// returns the first cycle found as a closed path.
func (v *Validator) findCycle(roots []string) []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, conn := range v.graph.ConnectionsFrom(id) {
			next := conn.TargetID

			if onStack[next] {
				start := slices.Index(path, next)
				cycle := slices.Clone(path[start:])

				return append(cycle, next)
			}

			if !visited[next] {
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}

		onStack[id] = false
		path = path[:len(path)-1]

		return nil
	}

	for _, root := range roots {
		if visited[root] {
			continue
		}

		if cycle := visit(root); cycle != nil {
			return cycle
		}
	}

	return nil
}

func (v *Validator) reachable(roots []string) map[string]bool {
	reached := make(map[string]bool)
	queue := slices.Clone(roots)

	for _, root := range roots {
		reached[root] = true
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, conn := range v.graph.ConnectionsFrom(id) {
			if !reached[conn.TargetID] {
				reached[conn.TargetID] = true
				queue = append(queue, conn.TargetID)
			}
		}
	}

	return reached
}
