// Package dag maintains the directed acyclic graph that backs a genome.
//
// Nodes are addressed by opaque NodeIDs which stay stable while the graph is
// edited. Every successful structural edit recomputes the topological order
// and the depth of every node, so readers can rely on Order and Depth being
// current at all times.
package dag

import (
	"fmt"
)

// NodeID is an opaque node handle. It supports equality only.
type NodeID struct {
	v uint32
}

// NodeIDFrom rebuilds a NodeID from its serialized value.
func NodeIDFrom(v uint32) NodeID {
	return NodeID{v: v}
}

// Uint32 returns the raw value of the id, for serialization.
func (id NodeID) Uint32() uint32 {
	return id.v
}

// String implements fmt.Stringer.
func (id NodeID) String() string {
	return fmt.Sprintf("#%d", id.v)
}

// Node is a graph vertex together with its adjacency lists.
type Node struct {
	ID    NodeID
	Depth int      // Longest path length from any node without incoming edges.
	Ins   []NodeID // Sources of incoming edges.
	Outs  []NodeID // Destinations of outgoing edges.
	Bias  float32  // Mirror of the genome bias, for inspection only.
}

// IsStart reports whether the node has no incoming edges.
func (n *Node) IsStart() bool {
	return len(n.Ins) == 0
}

type mark uint8

const (
	unvisited mark = iota
	inProgress
	visited
)

// Graph is a DAG over stable node ids.
// It is not safe for concurrent use.
type Graph struct {
	nodes  []Node
	index  map[NodeID]int // NodeID -> position in nodes
	order  []int          // Topological order, as positions in nodes
	nextID uint32
	edges  int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		index: make(map[NodeID]int),
	}
}

// CreateNode appends a node without edges and returns its id.
func (g *Graph) CreateNode() NodeID {
	id := NodeID{v: g.nextID}
	g.nextID++
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, Node{ID: id})
	// An isolated node can go anywhere in the order; the end is as good as any.
	g.order = append(g.order, len(g.nodes)-1)
	return id
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Has reports whether id belongs to this graph.
func (g *Graph) Has(id NodeID) bool {
	_, ok := g.index[id]
	return ok
}

// Index returns the storage position of a node.
func (g *Graph) Index(id NodeID) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// ID returns the id of the node stored at position i.
func (g *Graph) ID(i int) NodeID {
	return g.nodes[i].ID
}

// Node returns a copy of the node with the given id.
// The adjacency slices are shared with the graph and must not be modified.
func (g *Graph) Node(id NodeID) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// NodeAt returns a copy of the node stored at position i.
func (g *Graph) NodeAt(i int) Node {
	return g.nodes[i]
}

// Depth returns the topological depth of a node, or -1 if it is unknown.
func (g *Graph) Depth(id NodeID) int {
	i, ok := g.index[id]
	if !ok {
		return -1
	}
	return g.nodes[i].Depth
}

// MaxDepth returns the largest depth in the graph.
func (g *Graph) MaxDepth() int {
	maxDepth := 0
	for i := range g.nodes {
		maxDepth = max(maxDepth, g.nodes[i].Depth)
	}
	return maxDepth
}

// SetBias updates the bias mirror of a node.
func (g *Graph) SetBias(id NodeID, bias float32) {
	if i, ok := g.index[id]; ok {
		g.nodes[i].Bias = bias
	}
}

// Order returns the current topological order as storage positions.
func (g *Graph) Order() []int {
	order := make([]int, len(g.order))
	copy(order, g.order)
	return order
}

// IsConnected reports whether the edge from -> to exists.
func (g *Graph) IsConnected(from, to NodeID) bool {
	i, ok := g.index[from]
	if !ok {
		return false
	}
	for _, out := range g.nodes[i].Outs {
		if out == to {
			return true
		}
	}
	return false
}

// CanReach reports whether a directed path leads from one node to the other.
// A node always reaches itself.
func (g *Graph) CanReach(from, to NodeID) bool {
	start, ok := g.index[from]
	if !ok {
		return false
	}
	target, ok := g.index[to]
	if !ok {
		return false
	}
	if start == target {
		return true
	}

	seen := make([]bool, len(g.nodes))
	seen[start] = true
	stack := []int{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, out := range g.nodes[n].Outs {
			i := g.index[out]
			if i == target {
				return true
			}
			if !seen[i] {
				seen[i] = true
				stack = append(stack, i)
			}
		}
	}
	return false
}

// IsConnectionValid reports whether Connect(from, to) would succeed.
func (g *Graph) IsConnectionValid(from, to NodeID) bool {
	if !g.Has(from) || !g.Has(to) {
		return false
	}
	return !g.CanReach(to, from) && !g.IsConnected(from, to)
}

// Connect adds the edge from -> to unless it already exists or would close a
// cycle. Rejections leave the graph untouched.
func (g *Graph) Connect(from, to NodeID) bool {
	if !g.IsConnectionValid(from, to) {
		return false
	}
	g.link(from, to)
	g.ComputeDepths()
	return true
}

// Disconnect removes the edge from -> to if present.
func (g *Graph) Disconnect(from, to NodeID) {
	if !g.IsConnected(from, to) {
		return
	}
	g.unlink(from, to)
	g.ComputeDepths()
}

// Split replaces the existing edge from -> to with from -> n -> to, where n is
// a new node, and returns n. It panics if the edge does not exist.
func (g *Graph) Split(from, to NodeID) NodeID {
	if !g.IsConnected(from, to) {
		panic(fmt.Sprintf("dag: cannot split missing edge %v -> %v", from, to))
	}
	g.unlink(from, to)
	n := g.CreateNode()
	// n has no other edges, so neither link can close a cycle.
	g.link(from, n)
	g.link(n, to)
	g.ComputeDepths()
	return n
}

func (g *Graph) link(from, to NodeID) {
	fi, ti := g.index[from], g.index[to]
	g.nodes[fi].Outs = append(g.nodes[fi].Outs, to)
	g.nodes[ti].Ins = append(g.nodes[ti].Ins, from)
	g.edges++
}

func (g *Graph) unlink(from, to NodeID) {
	fi, ti := g.index[from], g.index[to]
	g.nodes[fi].Outs = removeID(g.nodes[fi].Outs, to)
	g.nodes[ti].Ins = removeID(g.nodes[ti].Ins, from)
	g.edges--
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ComputeDepths rebuilds the topological order and assigns depths.
//
// The traversal is an iterative depth-first search with three marks. Reaching
// a node that is still in progress means a cycle got into the graph, which
// Connect makes impossible, so it panics.
func (g *Graph) ComputeDepths() {
	type frame struct {
		node int
		next int
	}

	marks := make([]mark, len(g.nodes))
	post := make([]int, 0, len(g.nodes))
	var stack []frame

	for root := range g.nodes {
		if marks[root] != unvisited {
			continue
		}
		marks[root] = inProgress
		stack = append(stack, frame{node: root})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			outs := g.nodes[top.node].Outs
			if top.next < len(outs) {
				child := g.index[outs[top.next]]
				top.next++
				switch marks[child] {
				case inProgress:
					panic(fmt.Sprintf("dag: cycle detected through node %v", g.nodes[child].ID))
				case unvisited:
					marks[child] = inProgress
					stack = append(stack, frame{node: child})
				}
				continue
			}
			marks[top.node] = visited
			post = append(post, top.node)
			stack = stack[:len(stack)-1]
		}
	}

	g.order = g.order[:0]
	for i := len(post) - 1; i >= 0; i-- {
		g.order = append(g.order, post[i])
	}

	for _, i := range g.order {
		n := &g.nodes[i]
		n.Depth = 0
		for _, parent := range n.Ins {
			n.Depth = max(n.Depth, g.nodes[g.index[parent]].Depth+1)
		}
	}
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:  make([]Node, len(g.nodes)),
		index:  make(map[NodeID]int, len(g.index)),
		order:  make([]int, len(g.order)),
		nextID: g.nextID,
		edges:  g.edges,
	}
	for i, n := range g.nodes {
		n.Ins = append([]NodeID(nil), n.Ins...)
		n.Outs = append([]NodeID(nil), n.Outs...)
		c.nodes[i] = n
	}
	for id, i := range g.index {
		c.index[id] = i
	}
	copy(c.order, g.order)
	return c
}
