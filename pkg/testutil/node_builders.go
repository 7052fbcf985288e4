// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"testing"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/graph"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// CreateTestNode creates a TASK node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:       uuid.New().String(),
		Name:     "Test Node",
		Kind:     models.KindTask,
		Details:  "Default Task Details",
		Position: models.Position{X: 100, Y: 200},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node ID.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithName sets the node name.
func WithName(name string) func(*models.Node) {
	return func(n *models.Node) {
		n.Name = name
	}
}

// WithKind sets the node kind and clears the task details.
func WithKind(kind models.NodeKind) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = kind
		n.Details = ""
	}
}

// WithDetails sets the kind specific payload.
func WithDetails(details string) func(*models.Node) {
	return func(n *models.Node) {
		n.Details = details
	}
}

// WithCondition turns the node into a CONDITION node with the given expression.
func WithCondition(expression string) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = models.KindCondition
		n.Details = expression
		n.Condition = &models.Condition{Expression: expression}
	}
}

// WithPosition sets the canvas position.
func WithPosition(x, y float64) func(*models.Node) {
	return func(n *models.Node) {
		n.Position = models.Position{X: x, Y: y}
	}
}

// Node is a shorthand for a node of the given kind and ID with valid defaults.
func Node(id string, kind models.NodeKind) *models.Node {
	node := CreateTestNode(WithID(id), WithName(id), WithKind(kind))

	switch kind {
	case models.KindTask:
		node.Details = "Default Task Details"
	case models.KindCondition:
		node.Details = "score > 5"
		node.Condition = &models.Condition{Expression: "score > 5"}
	case models.KindPrediction:
		node.Details = "resnet"
	case models.KindAnalysis:
		node.Details = "Statistical"
	case models.KindClustering:
		node.Details = "kmeans"
	}

	return node
}

// Conn builds a connection.
func Conn(sourceID, targetID, label string) models.Connection {
	return models.Connection{SourceID: sourceID, TargetID: targetID, Label: label}
}

// BuildGraph creates a graph holding the given nodes and connections.
func BuildGraph(t testing.TB, nodes []*models.Node, connections ...models.Connection) *graph.Graph {
	t.Helper()

	g := graph.New(nil)

	for _, node := range nodes {
		require.NoError(t, g.AddNode(node))
	}

	for _, conn := range connections {
		require.NoError(t, g.AddConnection(conn))
	}

	return g
}

// LinearGraph builds START -> DATA -> TASK -> END with IDs s, d, t and e.
func LinearGraph(t testing.TB) *graph.Graph {
	t.Helper()

	return BuildGraph(t,
		[]*models.Node{
			Node("s", models.KindStart),
			Node("d", models.KindData),
			Node("t", models.KindTask),
			Node("e", models.KindEnd),
		},
		Conn("s", "d", ""),
		Conn("d", "t", ""),
		Conn("t", "e", ""),
	)
}

// BranchGraph builds START -> CONDITION with YES -> yes_task -> END and
// NO -> no_task -> END. The condition is "score > 5".
func BranchGraph(t testing.TB) *graph.Graph {
	t.Helper()

	return BuildGraph(t,
		[]*models.Node{
			Node("s", models.KindStart),
			Node("c", models.KindCondition),
			Node("yes_task", models.KindTask),
			Node("no_task", models.KindTask),
			Node("e", models.KindEnd),
		},
		Conn("s", "c", ""),
		Conn("c", "yes_task", models.LabelYes),
		Conn("c", "no_task", models.LabelNo),
		Conn("yes_task", "e", ""),
		Conn("no_task", "e", ""),
	)
}
