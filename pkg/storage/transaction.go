package storage

import (
	"fmt"
	"time"
)

// Tx is a write transaction. It is only valid inside the Update callback that
// received it; the store's write lock is held for its whole lifetime.
type Tx struct {
	reader

	createdNodes []*Node
	createdEdges []*Edge
	done         bool
}

// CreateNode creates a node. Every declared unique key on its labels must be
// free.
func (tx *Tx) CreateNode(labels []string, properties map[string]Value) (*Node, error) {
	if tx.done {
		return nil, ErrTxDone
	}
	if len(labels) == 0 {
		return nil, NewError("CreateNode").Context("no labels").Cause(ErrInvalidArgument).Err()
	}

	for _, label := range labels {
		for prop, index := range tx.gs.unique[label] {
			v, ok := properties[prop]
			if !ok {
				continue
			}
			if other, taken := index[v.key()]; taken {
				return nil, NewError("CreateNode").Index(label+"."+prop).
					Context(fmt.Sprintf("held by node %d", other)).Cause(ErrUniqueViolation).Err()
			}
		}
	}

	props := make(map[string]Value, len(properties))
	for k, v := range properties {
		props[k] = v
	}

	node := &Node{
		ID:         tx.gs.nextNodeID,
		Labels:     append([]string(nil), labels...),
		Properties: props,
		CreatedAt:  time.Now().Unix(),
	}
	tx.gs.nextNodeID++

	tx.gs.insertNode(node)
	tx.createdNodes = append(tx.createdNodes, node)
	return node, nil
}

// Merge returns the node with label whose property equals value, creating it
// with onCreate (plus the key itself) when none exists. Existing nodes are
// returned untouched.
func (tx *Tx) Merge(label, property string, value Value, onCreate map[string]Value) (*Node, bool, error) {
	if tx.done {
		return nil, false, ErrTxDone
	}
	if n, ok := tx.FindNode(label, property, value); ok {
		return n, false, nil
	}

	props := make(map[string]Value, len(onCreate)+1)
	for k, v := range onCreate {
		props[k] = v
	}
	props[property] = value

	n, err := tx.CreateNode([]string{label}, props)
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}

// CreateEdge creates a directed edge. Both endpoints must exist.
func (tx *Tx) CreateEdge(fromID, toID uint64, edgeType string, properties map[string]Value) (*Edge, error) {
	if tx.done {
		return nil, ErrTxDone
	}
	if _, ok := tx.gs.nodes[fromID]; !ok {
		return nil, NewError("CreateEdge").Node(fromID).Cause(ErrNodeNotFound).Err()
	}
	if _, ok := tx.gs.nodes[toID]; !ok {
		return nil, NewError("CreateEdge").Node(toID).Cause(ErrNodeNotFound).Err()
	}
	if edgeType == "" {
		return nil, NewError("CreateEdge").Context("empty type").Cause(ErrInvalidArgument).Err()
	}

	props := make(map[string]Value, len(properties))
	for k, v := range properties {
		props[k] = v
	}

	edge := &Edge{
		ID:         tx.gs.nextEdgeID,
		FromNodeID: fromID,
		ToNodeID:   toID,
		Type:       edgeType,
		Properties: props,
		CreatedAt:  time.Now().Unix(),
	}
	tx.gs.nextEdgeID++

	tx.gs.insertEdge(edge)
	tx.createdEdges = append(tx.createdEdges, edge)
	return edge, nil
}

// rollback undoes every change in reverse order. IDs are not reused.
func (tx *Tx) rollback() {
	for i := len(tx.createdEdges) - 1; i >= 0; i-- {
		tx.gs.removeEdge(tx.createdEdges[i])
	}
	for i := len(tx.createdNodes) - 1; i >= 0; i-- {
		tx.gs.removeNode(tx.createdNodes[i])
	}
	tx.createdEdges = nil
	tx.createdNodes = nil
	tx.done = true
}
