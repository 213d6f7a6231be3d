// Package storage is the embedded in-memory property graph engine. Writes go
// through Update, which applies one transaction atomically under the write
// lock and records it in the compressed WAL; reads go through View.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dd0wney/cluso-commgraph/pkg/wal"
)

// Config holds configuration for GraphStorage
type Config struct {
	// DataDir enables the WAL. Empty means a purely in-memory store.
	DataDir string
	// SyncWrites fsyncs the WAL on every commit.
	SyncWrites bool
}

// GraphStorage is the core in-memory graph storage engine
type GraphStorage struct {
	nodes map[uint64]*Node
	edges map[uint64]*Edge

	nodesByLabel  map[string][]uint64 // label -> node IDs in creation order
	outgoingEdges map[uint64][]uint64 // node ID -> outgoing edge IDs
	incomingEdges map[uint64][]uint64 // node ID -> incoming edge IDs
	edgeOrder     []uint64            // all edge IDs in creation order

	// label -> property -> value key -> node ID
	unique map[string]map[string]map[string]uint64

	nextNodeID uint64
	nextEdgeID uint64

	mu     sync.RWMutex
	closed bool

	log   *wal.Log
	stats Statistics
}

// commitRecord is the WAL payload for one committed transaction.
type commitRecord struct {
	Nodes []*Node `json:"nodes,omitempty"`
	Edges []*Edge `json:"edges,omitempty"`
}

// Open creates a graph storage engine, replaying the WAL in cfg.DataDir if any.
func Open(cfg Config) (*GraphStorage, error) {
	gs := &GraphStorage{
		nodes:         make(map[uint64]*Node),
		edges:         make(map[uint64]*Edge),
		nodesByLabel:  make(map[string][]uint64),
		outgoingEdges: make(map[uint64][]uint64),
		incomingEdges: make(map[uint64][]uint64),
		unique:        make(map[string]map[string]map[string]uint64),
		nextNodeID:    1,
		nextEdgeID:    1,
	}

	if cfg.DataDir == "" {
		return gs, nil
	}

	log, err := wal.Open(cfg.DataDir, cfg.SyncWrites)
	if err != nil {
		return nil, NewError("Open").WAL().Cause(err).Err()
	}

	if err := log.Replay(gs.replayEntry); err != nil {
		log.Close()
		return nil, NewError("Replay").WAL().Cause(err).Err()
	}
	gs.log = log
	gs.stats.LastLSN = log.CurrentLSN()

	return gs, nil
}

// NewMemory returns a store without persistence.
func NewMemory() *GraphStorage {
	gs, _ := Open(Config{})
	return gs
}

func (gs *GraphStorage) replayEntry(entry *wal.Entry) error {
	if entry.OpType != wal.OpCommit {
		return fmt.Errorf("unexpected WAL op %v", entry.OpType)
	}
	var rec commitRecord
	if err := json.Unmarshal(entry.Data, &rec); err != nil {
		return fmt.Errorf("%w: %v", ErrMarshalFailed, err)
	}
	for _, n := range rec.Nodes {
		gs.insertNode(n)
		if n.ID >= gs.nextNodeID {
			gs.nextNodeID = n.ID + 1
		}
	}
	for _, e := range rec.Edges {
		gs.insertEdge(e)
		if e.ID >= gs.nextEdgeID {
			gs.nextEdgeID = e.ID + 1
		}
	}
	return nil
}

// EnsureUnique declares property as a unique key for label and indexes the
// nodes that already carry it. Existing duplicates are an error.
func (gs *GraphStorage) EnsureUnique(label, property string) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return ErrStorageClosed
	}

	if _, ok := gs.unique[label][property]; ok {
		return nil
	}

	index := make(map[string]uint64)
	for _, id := range gs.nodesByLabel[label] {
		v, ok := gs.nodes[id].Properties[property]
		if !ok {
			continue
		}
		if other, dup := index[v.key()]; dup {
			return NewError("EnsureUnique").Index(label+"."+property).
				Context(fmt.Sprintf("nodes %d and %d", other, id)).Cause(ErrUniqueViolation).Err()
		}
		index[v.key()] = id
	}

	if gs.unique[label] == nil {
		gs.unique[label] = make(map[string]map[string]uint64)
	}
	gs.unique[label][property] = index
	return nil
}

// Update runs fn inside a write transaction. If fn returns an error, or the
// WAL append fails, every change fn made is rolled back.
func (gs *GraphStorage) Update(fn func(tx *Tx) error) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return ErrStorageClosed
	}

	tx := &Tx{reader: reader{gs: gs}}
	if err := fn(tx); err != nil {
		tx.rollback()
		gs.stats.Rollbacks++
		return err
	}
	tx.done = true

	if len(tx.createdNodes) == 0 && len(tx.createdEdges) == 0 {
		return nil
	}

	if gs.log != nil {
		rec := commitRecord{Nodes: tx.createdNodes, Edges: tx.createdEdges}
		data, err := json.Marshal(rec)
		if err != nil {
			tx.rollback()
			gs.stats.Rollbacks++
			return NewError("Commit").WAL().Cause(fmt.Errorf("%w: %v", ErrMarshalFailed, err)).Err()
		}
		lsn, err := gs.log.Append(wal.OpCommit, data)
		if err != nil {
			tx.rollback()
			gs.stats.Rollbacks++
			return NewError("Commit").WAL().Cause(fmt.Errorf("%w: %v", ErrWALAppendFailed, err)).Err()
		}
		gs.stats.LastLSN = lsn
	}

	gs.stats.Commits++
	return nil
}

// View runs fn with a consistent read-only snapshot.
func (gs *GraphStorage) View(fn func(r Reader) error) error {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if gs.closed {
		return ErrStorageClosed
	}
	return fn(reader{gs: gs})
}

// Statistics returns current database statistics
func (gs *GraphStorage) Statistics() Statistics {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	stats := gs.stats
	stats.NodeCount = uint64(len(gs.nodes))
	stats.EdgeCount = uint64(len(gs.edges))
	return stats
}

// Labels returns every label that has at least one node, sorted.
func (gs *GraphStorage) Labels() []string {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	labels := make([]string, 0, len(gs.nodesByLabel))
	for l, ids := range gs.nodesByLabel {
		if len(ids) > 0 {
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)
	return labels
}

// Close flushes and closes the WAL. Further operations fail with
// ErrStorageClosed.
func (gs *GraphStorage) Close() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return nil
	}
	gs.closed = true

	if gs.log != nil {
		return gs.log.Close()
	}
	return nil
}

func (gs *GraphStorage) insertNode(n *Node) {
	gs.nodes[n.ID] = n
	for _, label := range n.Labels {
		gs.nodesByLabel[label] = append(gs.nodesByLabel[label], n.ID)
		for prop, index := range gs.unique[label] {
			if v, ok := n.Properties[prop]; ok {
				index[v.key()] = n.ID
			}
		}
	}
}

func (gs *GraphStorage) insertEdge(e *Edge) {
	gs.edges[e.ID] = e
	gs.edgeOrder = append(gs.edgeOrder, e.ID)
	gs.outgoingEdges[e.FromNodeID] = append(gs.outgoingEdges[e.FromNodeID], e.ID)
	gs.incomingEdges[e.ToNodeID] = append(gs.incomingEdges[e.ToNodeID], e.ID)
}

// removeNode undoes insertNode. Only valid for the most recently inserted
// node of each of its labels, which rollback guarantees by undoing in reverse.
func (gs *GraphStorage) removeNode(n *Node) {
	delete(gs.nodes, n.ID)
	for _, label := range n.Labels {
		ids := gs.nodesByLabel[label]
		if len(ids) > 0 && ids[len(ids)-1] == n.ID {
			gs.nodesByLabel[label] = ids[:len(ids)-1]
		}
		for prop, index := range gs.unique[label] {
			if v, ok := n.Properties[prop]; ok && index[v.key()] == n.ID {
				delete(index, v.key())
			}
		}
	}
}

// removeEdge undoes insertEdge under the same reverse-order guarantee.
func (gs *GraphStorage) removeEdge(e *Edge) {
	delete(gs.edges, e.ID)
	if n := len(gs.edgeOrder); n > 0 && gs.edgeOrder[n-1] == e.ID {
		gs.edgeOrder = gs.edgeOrder[:n-1]
	}
	gs.outgoingEdges[e.FromNodeID] = dropLast(gs.outgoingEdges[e.FromNodeID], e.ID)
	gs.incomingEdges[e.ToNodeID] = dropLast(gs.incomingEdges[e.ToNodeID], e.ID)
}

func dropLast(ids []uint64, id uint64) []uint64 {
	if n := len(ids); n > 0 && ids[n-1] == id {
		return ids[:n-1]
	}
	return ids
}
