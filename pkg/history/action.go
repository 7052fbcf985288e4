// Package history records graph edits as reversible actions and replays them
// for undo and redo.
package history

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/graph"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
)

var ErrUnknownAction = errors.New("unknown action")

type ActionType string

const (
	ActionCreateNode      ActionType = "create_node"
	ActionDeleteNode      ActionType = "delete_node"
	ActionMoveNode        ActionType = "move_node"
	ActionConnectNodes    ActionType = "connect_nodes"
	ActionDisconnectNodes ActionType = "disconnect_nodes"
)

// Action is a reversible graph edit. Each type uses only the fields its
// forward effect and its inverse need:
//
//	create_node       Node, plus Connections restored with it
//	delete_node       Node and the Connections incident to it
//	move_node         Node.ID, From and To
//	connect_nodes     Connection
//	disconnect_nodes  Connection with its label
//
// Delete and disconnect also keep the Branches of the CONDITION sources they
// touch, since removing a connection clears the branch target pointing at it.
type Action struct {
	Type        ActionType          `json:"type"`
	Node        *models.Node        `json:"node,omitempty"`
	Connections []models.Connection `json:"connections,omitempty"`
	Connection  models.Connection   `json:"connection,omitzero"`
	From        models.Position     `json:"from,omitzero"`
	To          models.Position     `json:"to,omitzero"`
	Branches    []Branch            `json:"branches,omitempty"`
}

// Branch is the explicit YES/NO target pair of a CONDITION node.
type Branch struct {
	NodeID    string `json:"node_id"`
	YesTarget string `json:"yes_target,omitempty"`
	NoTarget  string `json:"no_target,omitempty"`
}

// CreateNode adds node. The action keeps its own copy.
func CreateNode(node *models.Node) Action {
	return Action{Type: ActionCreateNode, Node: node.Clone()}
}

// DeleteNode captures the node and its incident connections so the deletion
// can be reverted after the graph no longer holds them.
func DeleteNode(g *graph.Graph, id string) (Action, error) {
	node, err := g.FindByID(id)
	if err != nil {
		return Action{}, err
	}

	incident := g.IncidentConnections(id)

	sources := make([]string, 0, len(incident))
	for _, conn := range incident {
		if conn.TargetID == id && conn.SourceID != id {
			sources = append(sources, conn.SourceID)
		}
	}

	return Action{
		Type:        ActionDeleteNode,
		Node:        node.Clone(),
		Connections: incident,
		Branches:    captureBranches(g, sources),
	}, nil
}

// MoveNode captures the current position of the node.
func MoveNode(g *graph.Graph, id string, x, y float64) (Action, error) {
	node, err := g.FindByID(id)
	if err != nil {
		return Action{}, err
	}

	return Action{
		Type: ActionMoveNode,
		Node: &models.Node{ID: node.ID, Kind: node.Kind},
		From: node.Position,
		To:   models.Position{X: x, Y: y},
	}, nil
}

func ConnectNodes(sourceID, targetID, label string) Action {
	return Action{
		Type: ActionConnectNodes,
		Connection: models.Connection{
			SourceID: sourceID,
			TargetID: targetID,
			Label:    models.NormalizeLabel(label),
		},
	}
}

// DisconnectNodes captures the connection, label included.
func DisconnectNodes(g *graph.Graph, sourceID, targetID string) (Action, error) {
	conn, ok := g.Connection(sourceID, targetID)
	if !ok {
		return Action{}, &graph.Error{
			Op:       "RemoveConnection",
			NodeID:   sourceID,
			TargetID: targetID,
			Err:      graph.ErrConnectionNotFound,
		}
	}

	return Action{
		Type:       ActionDisconnectNodes,
		Connection: conn,
		Branches:   captureBranches(g, []string{sourceID}),
	}, nil
}

func captureBranches(g *graph.Graph, ids []string) []Branch {
	var branches []Branch

	for _, id := range ids {
		if slices.ContainsFunc(branches, func(b Branch) bool { return b.NodeID == id }) {
			continue
		}

		node, err := g.FindByID(id)
		if err != nil || node.Condition == nil {
			continue
		}

		branches = append(branches, Branch{
			NodeID:    id,
			YesTarget: node.Condition.YesTarget,
			NoTarget:  node.Condition.NoTarget,
		})
	}

	return branches
}

func restoreBranches(g *graph.Graph, branches []Branch) error {
	for _, b := range branches {
		if err := g.SetBranchTargets(b.NodeID, b.YesTarget, b.NoTarget); err != nil {
			return err
		}
	}

	return nil
}

// Invert returns the action that undoes a.
func Invert(a Action) Action {
	switch a.Type {
	case ActionCreateNode:
		return Action{Type: ActionDeleteNode, Node: a.Node, Connections: a.Connections, Branches: a.Branches}
	case ActionDeleteNode:
		return Action{Type: ActionCreateNode, Node: a.Node, Connections: a.Connections, Branches: a.Branches}
	case ActionMoveNode:
		return Action{Type: ActionMoveNode, Node: a.Node, From: a.To, To: a.From}
	case ActionConnectNodes:
		return Action{Type: ActionDisconnectNodes, Connection: a.Connection, Branches: a.Branches}
	case ActionDisconnectNodes:
		return Action{Type: ActionConnectNodes, Connection: a.Connection, Branches: a.Branches}
	default:
		return a
	}
}

// Apply performs the forward effect of a on g. A failed Apply leaves g as it
// was.
func Apply(g *graph.Graph, a Action) error {
	switch a.Type {
	case ActionCreateNode:
		if err := restoreNode(g, a.Node, a.Connections); err != nil {
			return err
		}

		return restoreBranches(g, a.Branches)
	case ActionDeleteNode:
		if a.Node == nil {
			return fmt.Errorf("%w: delete without node", ErrUnknownAction)
		}

		_, _, err := g.RemoveNode(a.Node.ID)

		return err
	case ActionMoveNode:
		if a.Node == nil {
			return fmt.Errorf("%w: move without node", ErrUnknownAction)
		}

		_, err := g.MoveNode(a.Node.ID, a.To)

		return err
	case ActionConnectNodes:
		if err := g.AddConnection(a.Connection); err != nil {
			return err
		}

		return restoreBranches(g, a.Branches)
	case ActionDisconnectNodes:
		if _, ok := g.RemoveConnection(a.Connection.SourceID, a.Connection.TargetID); !ok {
			return &graph.Error{
				Op:       "RemoveConnection",
				NodeID:   a.Connection.SourceID,
				TargetID: a.Connection.TargetID,
				Err:      graph.ErrConnectionNotFound,
			}
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
}

func restoreNode(g *graph.Graph, node *models.Node, connections []models.Connection) error {
	if node == nil {
		return fmt.Errorf("%w: create without node", ErrUnknownAction)
	}

	if err := g.AddNode(node.Clone()); err != nil {
		return err
	}

	for _, conn := range connections {
		if err := g.AddConnection(conn); err != nil {
			// RemoveNode cascades the connections restored so far.
			_, _, _ = g.RemoveNode(node.ID)

			return err
		}
	}

	return nil
}

// Subject returns the node ID, source ID and target ID the action touches.
func (a Action) Subject() (nodeID, sourceID, targetID string) {
	switch a.Type {
	case ActionConnectNodes, ActionDisconnectNodes:
		return "", a.Connection.SourceID, a.Connection.TargetID
	default:
		if a.Node != nil {
			return a.Node.ID, "", ""
		}

		return "", "", ""
	}
}

func (a Action) String() string {
	switch a.Type {
	case ActionCreateNode, ActionDeleteNode:
		return fmt.Sprintf("%s %s", a.Type, a.Node)
	case ActionMoveNode:
		nodeID, _, _ := a.Subject()

		return fmt.Sprintf("%s %s (%g,%g) -> (%g,%g)", a.Type, nodeID, a.From.X, a.From.Y, a.To.X, a.To.Y)
	case ActionConnectNodes, ActionDisconnectNodes:
		return fmt.Sprintf("%s %s", a.Type, a.Connection)
	default:
		return string(a.Type)
	}
}
