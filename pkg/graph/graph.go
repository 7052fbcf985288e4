// Package graph provides the in-memory store of workflow nodes and connections.
package graph

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
)

// Graph owns the nodes and connections of one workflow. The global connection
// list and the per-source adjacency index are always updated together.
//
// Graph is not safe for concurrent use.
type Graph struct {
	logger      *slog.Logger
	nodes       map[string]*models.Node
	order       []string
	connections []models.Connection
	outgoing    map[string][]models.Connection
}

// New returns an empty graph.
func New(logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}

	return &Graph{
		logger:   logger.With("component", "graph"),
		nodes:    make(map[string]*models.Node),
		outgoing: make(map[string][]models.Connection),
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// AddNode inserts a node. IDs must be unique and non-empty.
func (g *Graph) AddNode(node *models.Node) error {
	if node == nil || node.ID == "" {
		return &Error{Op: "AddNode", Err: fmt.Errorf("%w: empty id", ErrInvalidNode)}
	}

	if !node.Kind.Valid() {
		return &Error{Op: "AddNode", NodeID: node.ID, Err: fmt.Errorf("%w: %w", ErrInvalidNode, models.ErrUnknownKind)}
	}

	if _, exists := g.nodes[node.ID]; exists {
		return &Error{Op: "AddNode", NodeID: node.ID, Err: ErrDuplicateNode}
	}

	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)

	return nil
}

// RemoveNode deletes a node together with every incident connection. The
// removed connections are returned in list order.
func (g *Graph) RemoveNode(id string) (*models.Node, []models.Connection, error) {
	node, ok := g.nodes[id]
	if !ok {
		return nil, nil, &Error{Op: "RemoveNode", NodeID: id, Err: ErrNodeNotFound}
	}

	incident := g.IncidentConnections(id)
	for _, conn := range incident {
		g.removeConnection(conn.SourceID, conn.TargetID)
	}

	delete(g.nodes, id)
	delete(g.outgoing, id)
	g.order = slices.DeleteFunc(g.order, func(existing string) bool { return existing == id })

	return node, incident, nil
}

// FindByID returns the node with the given ID.
func (g *Graph) FindByID(id string) (*models.Node, error) {
	node, ok := g.nodes[id]
	if !ok {
		return nil, &Error{Op: "FindByID", NodeID: id, Err: ErrNodeNotFound}
	}

	return node, nil
}

// Has reports whether the node exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]

	return ok
}

// MustFind returns the node with the given ID and panics when it is absent.
// Use it only where the ID is known to be part of the graph.
func (g *Graph) MustFind(id string) *models.Node {
	node, err := g.FindByID(id)
	if err != nil {
		panic(err)
	}

	return node
}

// ListNodes returns the nodes in insertion order.
func (g *Graph) ListNodes() []*models.Node {
	nodes := make([]*models.Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}

	return nodes
}

// NodeIDs returns the node IDs in insertion order.
func (g *Graph) NodeIDs() []string {
	return slices.Clone(g.order)
}

// ListConnections returns the connections in insertion order.
func (g *Graph) ListConnections() []models.Connection {
	return slices.Clone(g.connections)
}

// ConnectionsFrom returns the outgoing connections of a node.
func (g *Graph) ConnectionsFrom(id string) []models.Connection {
	return slices.Clone(g.outgoing[id])
}

// ConnectionsTo returns the incoming connections of a node.
func (g *Graph) ConnectionsTo(id string) []models.Connection {
	var incoming []models.Connection

	for _, conn := range g.connections {
		if conn.TargetID == id {
			incoming = append(incoming, conn)
		}
	}

	return incoming
}

// IncidentConnections returns every connection touching the node, in list order.
func (g *Graph) IncidentConnections(id string) []models.Connection {
	var incident []models.Connection

	for _, conn := range g.connections {
		if conn.SourceID == id || conn.TargetID == id {
			incident = append(incident, conn)
		}
	}

	return incident
}

// FindStartNodes returns every START node in insertion order.
func (g *Graph) FindStartNodes() []*models.Node {
	var starts []*models.Node

	for _, id := range g.order {
		if node := g.nodes[id]; node.Kind == models.KindStart {
			starts = append(starts, node)
		}
	}

	return starts
}

// Connection returns the connection from source to target.
func (g *Graph) Connection(sourceID, targetID string) (models.Connection, bool) {
	for _, conn := range g.outgoing[sourceID] {
		if conn.TargetID == targetID {
			return conn, true
		}
	}

	return models.Connection{}, false
}

// AddConnection links two existing nodes. A YES or NO label on a connection
// leaving a CONDITION node also sets the matching branch target.
func (g *Graph) AddConnection(conn models.Connection) error {
	source, ok := g.nodes[conn.SourceID]
	if !ok {
		return &Error{Op: "AddConnection", NodeID: conn.SourceID, TargetID: conn.TargetID,
			Err: fmt.Errorf("source %w", ErrNodeNotFound)}
	}

	if _, ok := g.nodes[conn.TargetID]; !ok {
		return &Error{Op: "AddConnection", NodeID: conn.SourceID, TargetID: conn.TargetID,
			Err: fmt.Errorf("target %w", ErrNodeNotFound)}
	}

	if _, exists := g.Connection(conn.SourceID, conn.TargetID); exists {
		return &Error{Op: "AddConnection", NodeID: conn.SourceID, TargetID: conn.TargetID, Err: ErrDuplicateConnection}
	}

	conn.Label = models.NormalizeLabel(conn.Label)

	g.connections = append(g.connections, conn)
	g.outgoing[conn.SourceID] = append(g.outgoing[conn.SourceID], conn)

	if source.Kind == models.KindCondition {
		setBranchTarget(source, conn)
	}

	return nil
}

// RemoveConnection deletes the connection from source to target. Removing a
// connection that does not exist is a no-op reported through the logger.
func (g *Graph) RemoveConnection(sourceID, targetID string) (models.Connection, bool) {
	conn, ok := g.removeConnection(sourceID, targetID)
	if !ok {
		g.logger.Warn("connection not found, nothing removed", "source_id", sourceID, "target_id", targetID)
	}

	return conn, ok
}

func (g *Graph) removeConnection(sourceID, targetID string) (models.Connection, bool) {
	index := slices.IndexFunc(g.connections, func(c models.Connection) bool {
		return c.SourceID == sourceID && c.TargetID == targetID
	})
	if index < 0 {
		return models.Connection{}, false
	}

	conn := g.connections[index]
	g.connections = slices.Delete(g.connections, index, index+1)

	g.outgoing[sourceID] = slices.DeleteFunc(g.outgoing[sourceID], func(c models.Connection) bool {
		return c.TargetID == targetID
	})
	if len(g.outgoing[sourceID]) == 0 {
		delete(g.outgoing, sourceID)
	}

	if source, ok := g.nodes[sourceID]; ok && source.Condition != nil {
		if source.Condition.YesTarget == targetID {
			source.Condition.YesTarget = ""
		}

		if source.Condition.NoTarget == targetID {
			source.Condition.NoTarget = ""
		}
	}

	return conn, true
}

// BranchTargets resolves the YES and NO targets of a CONDITION node. Explicit
// targets win over labeled connections; connection order is never used.
func (g *Graph) BranchTargets(id string) (string, string) {
	node, ok := g.nodes[id]
	if !ok {
		return "", ""
	}

	var yes, no string

	if node.Condition != nil {
		yes, no = node.Condition.YesTarget, node.Condition.NoTarget
	}

	for _, conn := range g.outgoing[id] {
		switch conn.Label {
		case models.LabelYes:
			if yes == "" {
				yes = conn.TargetID
			}
		case models.LabelNo:
			if no == "" {
				no = conn.TargetID
			}
		}
	}

	return yes, no
}

// SetBranchTargets overwrites the explicit YES and NO targets of a CONDITION
// node. Empty values clear them.
func (g *Graph) SetBranchTargets(id, yes, no string) error {
	node, ok := g.nodes[id]
	if !ok {
		return &Error{Op: "SetBranchTargets", NodeID: id, Err: ErrNodeNotFound}
	}

	if node.Kind != models.KindCondition {
		return &Error{Op: "SetBranchTargets", NodeID: id, Err: fmt.Errorf("%w: %s has no branches", ErrInvalidNode, node.Kind)}
	}

	if node.Condition == nil {
		if yes == "" && no == "" {
			return nil
		}

		node.Condition = &models.Condition{}
	}

	node.Condition.YesTarget = yes
	node.Condition.NoTarget = no

	return nil
}

// MoveNode sets the node position and returns the previous one.
func (g *Graph) MoveNode(id string, position models.Position) (models.Position, error) {
	node, ok := g.nodes[id]
	if !ok {
		return models.Position{}, &Error{Op: "MoveNode", NodeID: id, Err: ErrNodeNotFound}
	}

	previous := node.Position
	node.Position = position

	return previous, nil
}

// Clone returns a deep copy sharing nothing with g.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		logger:      g.logger,
		nodes:       make(map[string]*models.Node, len(g.nodes)),
		order:       slices.Clone(g.order),
		connections: slices.Clone(g.connections),
		outgoing:    make(map[string][]models.Connection, len(g.outgoing)),
	}

	for id, node := range g.nodes {
		clone.nodes[id] = node.Clone()
	}

	for id, conns := range g.outgoing {
		clone.outgoing[id] = slices.Clone(conns)
	}

	return clone
}

// Clear removes every node and connection.
func (g *Graph) Clear() {
	g.nodes = make(map[string]*models.Node)
	g.order = nil
	g.connections = nil
	g.outgoing = make(map[string][]models.Connection)
}

func setBranchTarget(source *models.Node, conn models.Connection) {
	if !conn.IsBranch() {
		return
	}

	if source.Condition == nil {
		source.Condition = &models.Condition{}
	}

	switch conn.Label {
	case models.LabelYes:
		source.Condition.YesTarget = conn.TargetID
	case models.LabelNo:
		source.Condition.NoTarget = conn.TargetID
	}
}
