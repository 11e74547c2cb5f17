// Package graph builds the rooted decision tree searched once per frame.
//
// Nodes live in an arena and refer to each other by index, so a node has
// exactly one parent and the same logical action under two ancestors is
// two distinct nodes.
package graph

import (
	"math"

	"github.com/aristath/tradepath/internal/domain"
)

// NodeID addresses a node inside its Graph
type NodeID int

const (
	// RootID is the handle of the neutral root
	RootID NodeID = 0
	// NoParent is the parent handle of the root
	NoParent NodeID = -1
	// RootSymbol labels the neutral root node
	RootSymbol = "emp"
)

// Node is one action instance in the tree
type Node struct {
	domain.ActionCandidate
	Children  []NodeID `json:"children,omitempty"`
	Heuristic float64  `json:"heuristic"`
	ID        NodeID   `json:"id"`
	Parent    NodeID   `json:"parent"`
	Depth     int      `json:"depth"`
}

// IsRoot reports whether n is the tree root
func (n *Node) IsRoot() bool {
	return n.Parent == NoParent
}

// Cost returns the cash needed to execute the node (buy price, else 0)
func (n *Node) Cost() float64 {
	if n.Action != domain.ActionBuy {
		return 0
	}
	return math.Abs(n.Value)
}

// Graph is an arena of nodes, root first
type Graph struct {
	nodes []Node
}

// New creates a graph holding only the root
func New() *Graph {
	return &Graph{
		nodes: []Node{{
			ActionCandidate: domain.ActionCandidate{Symbol: RootSymbol, Action: domain.ActionNone},
			ID:              RootID,
			Parent:          NoParent,
		}},
	}
}

// Root returns the root node
func (g *Graph) Root() *Node {
	return &g.nodes[RootID]
}

// Node returns the node with handle id. It panics on an unknown handle.
func (g *Graph) Node(id NodeID) *Node {
	return &g.nodes[id]
}

// Len returns the number of nodes including the root
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns every node, root first
func (g *Graph) Nodes() []Node {
	return g.nodes
}

// Attach clones candidate under parent and returns the new handle
func (g *Graph) Attach(parent NodeID, candidate domain.ActionCandidate, heuristic float64) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{
		ActionCandidate: candidate,
		Heuristic:       heuristic,
		ID:              id,
		Parent:          parent,
		Depth:           g.nodes[parent].Depth + 1,
	})
	g.nodes[parent].Children = append(g.nodes[parent].Children, id)
	return id
}

// Path returns the handles from the root to id, both included
func (g *Graph) Path(id NodeID) []NodeID {
	var path []NodeID
	for cur := id; cur != NoParent; cur = g.nodes[cur].Parent {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Leaves returns the handles of nodes without children
func (g *Graph) Leaves() []NodeID {
	var leaves []NodeID
	for i := range g.nodes {
		if len(g.nodes[i].Children) == 0 {
			leaves = append(leaves, g.nodes[i].ID)
		}
	}
	return leaves
}

// Candidates converts handles to their action candidates, skipping the root
func (g *Graph) Candidates(ids []NodeID) []domain.ActionCandidate {
	out := make([]domain.ActionCandidate, 0, len(ids))
	for _, id := range ids {
		n := g.Node(id)
		if n.IsRoot() {
			continue
		}
		out = append(out, n.ActionCandidate)
	}
	return out
}
