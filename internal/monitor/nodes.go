package monitor

import (
	"sort"
	"sync"
	"time"
)

// NodeStatus is what the monitor knows about one reporting node.
type NodeStatus struct {
	NodeID     uint32    `json:"node_id"`
	FirstSeen  time.Time `json:"first_seen"`
	LastUpdate time.Time `json:"last_update"`
	Samples    uint64    `json:"samples"`
	Connected  bool      `json:"connected"`
}

// NodeRegistry tracks nodes seen by ingestion.
type NodeRegistry struct {
	mu    sync.Mutex
	nodes map[uint32]*NodeStatus
}

func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{nodes: make(map[uint32]*NodeStatus)}
}

// Touch records a sample from nodeID at the given time. It reports true when
// the node is new or was previously marked stale.
func (r *NodeRegistry) Touch(nodeID uint32, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[nodeID]
	if !ok {
		r.nodes[nodeID] = &NodeStatus{NodeID: nodeID, FirstSeen: at, LastUpdate: at, Samples: 1, Connected: true}
		return true
	}
	reconnected := !n.Connected
	n.Connected = true
	n.Samples++
	if at.After(n.LastUpdate) {
		n.LastUpdate = at
	}
	return reconnected
}

// Sweep marks connected nodes silent for longer than staleAfter as
// disconnected and returns them.
func (r *NodeRegistry) Sweep(now time.Time, staleAfter time.Duration) []NodeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []NodeStatus
	for _, n := range r.nodes {
		if n.Connected && now.Sub(n.LastUpdate) > staleAfter {
			n.Connected = false
			stale = append(stale, *n)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].NodeID < stale[j].NodeID })
	return stale
}

// Snapshot returns every known node ordered by id.
func (r *NodeRegistry) Snapshot() []NodeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]NodeStatus, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// Active counts connected nodes.
func (r *NodeRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := 0
	for _, n := range r.nodes {
		if n.Connected {
			active++
		}
	}
	return active
}
