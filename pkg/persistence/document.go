package persistence

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/graph"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/nodes"
)

// Document is the stored form of a workflow graph. Node and connection order
// follow the graph.
type Document struct {
	Name        string               `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes       []NodeDocument       `json:"nodes"          yaml:"nodes"          validate:"dive"`
	Connections []ConnectionDocument `json:"connections"    yaml:"connections"    validate:"dive"`
}

// NodeDocument carries a node. X and Y are canvas placement only.
type NodeDocument struct {
	ID          string            `json:"id"                    yaml:"id"                    validate:"required"`
	Name        string            `json:"name"                  yaml:"name"`
	Type        string            `json:"type"                  yaml:"type"                  validate:"required"`
	X           float64           `json:"x"                     yaml:"x"`
	Y           float64           `json:"y"                     yaml:"y"`
	Details     string            `json:"details,omitempty"     yaml:"details,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"    yaml:"metadata,omitempty"`
	Condition   string            `json:"condition,omitempty"   yaml:"condition,omitempty"`
	YesTarget   string            `json:"yesTarget,omitempty"   yaml:"yesTarget,omitempty"`
	NoTarget    string            `json:"noTarget,omitempty"    yaml:"noTarget,omitempty"`
}

type ConnectionDocument struct {
	SourceID string `json:"sourceId"        yaml:"sourceId"        validate:"required"`
	TargetID string `json:"targetId"        yaml:"targetId"        validate:"required"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
}

// FromGraph captures every node and connection of g.
func FromGraph(name string, g *graph.Graph) *Document {
	doc := &Document{
		Name:        name,
		Nodes:       make([]NodeDocument, 0, g.Len()),
		Connections: make([]ConnectionDocument, 0),
	}

	for _, node := range g.ListNodes() {
		entry := NodeDocument{
			ID:          node.ID,
			Name:        node.Name,
			Type:        string(node.Kind),
			X:           node.Position.X,
			Y:           node.Position.Y,
			Details:     node.Details,
			Description: node.Description,
			Metadata:    maps.Clone(node.Metadata),
		}

		if node.Condition != nil {
			entry.Condition = node.Condition.Expression
			entry.YesTarget = node.Condition.YesTarget
			entry.NoTarget = node.Condition.NoTarget
		}

		doc.Nodes = append(doc.Nodes, entry)
	}

	for _, conn := range g.ListConnections() {
		doc.Connections = append(doc.Connections, ConnectionDocument{
			SourceID: conn.SourceID,
			TargetID: conn.TargetID,
			Label:    conn.Label,
		})
	}

	return doc
}

// Build instantiates the nodes in array order through factory and links the
// connections. Duplicate node IDs, unknown kinds and connections to unknown
// nodes are rejected.
func (d *Document) Build(factory *nodes.Factory, logger *slog.Logger) (*graph.Graph, error) {
	g := graph.New(logger)

	for i, entry := range d.Nodes {
		node, err := d.node(factory, entry)
		if err != nil {
			return nil, &WorkflowError{Op: "Build", Name: d.Name, Err: err, Message: fmt.Sprintf("node %d", i)}
		}

		if err := g.AddNode(node); err != nil {
			return nil, &WorkflowError{Op: "Build", Name: d.Name, Err: err, Message: fmt.Sprintf("node %d", i)}
		}
	}

	for i, entry := range d.Connections {
		conn := models.Connection{SourceID: entry.SourceID, TargetID: entry.TargetID, Label: entry.Label}

		if err := g.AddConnection(conn); err != nil {
			return nil, &WorkflowError{Op: "Build", Name: d.Name, Err: err, Message: fmt.Sprintf("connection %d", i)}
		}
	}

	// Explicit targets override the ones derived from labels.
	for i, entry := range d.Nodes {
		if entry.YesTarget == "" && entry.NoTarget == "" {
			continue
		}

		for _, target := range []string{entry.YesTarget, entry.NoTarget} {
			if target != "" && !g.Has(target) {
				err := &graph.Error{Op: "Build", NodeID: entry.ID, TargetID: target,
					Err: fmt.Errorf("branch target %w", graph.ErrNodeNotFound)}

				return nil, &WorkflowError{Op: "Build", Name: d.Name, Err: err, Message: fmt.Sprintf("node %d", i)}
			}
		}

		node := g.MustFind(entry.ID)
		if node.Condition == nil {
			continue
		}

		if entry.YesTarget != "" {
			node.Condition.YesTarget = entry.YesTarget
		}

		if entry.NoTarget != "" {
			node.Condition.NoTarget = entry.NoTarget
		}
	}

	return g, nil
}

func (d *Document) node(factory *nodes.Factory, entry NodeDocument) (*models.Node, error) {
	kind, err := models.ParseKind(entry.Type)
	if err != nil {
		return nil, err
	}

	node, err := factory.CreateDefault(kind, entry.ID, entry.Name)
	if err != nil {
		return nil, err
	}

	if entry.Details != "" {
		node.Details = entry.Details
	}

	node.Description = entry.Description
	node.MergeMetadata(entry.Metadata)
	node.Position = models.Position{X: entry.X, Y: entry.Y}

	if kind == models.KindCondition {
		expression := entry.Condition
		if expression == "" {
			expression = entry.Details
		}

		node.Details = expression
		node.Condition = &models.Condition{Expression: expression}
	}

	return node, nil
}

// NodeIDs returns the node IDs in document order.
func (d *Document) NodeIDs() []string {
	ids := make([]string, 0, len(d.Nodes))
	for _, entry := range d.Nodes {
		ids = append(ids, entry.ID)
	}

	return ids
}
