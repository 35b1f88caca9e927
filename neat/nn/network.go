// Package nn holds the compiled, read-only form of a genome.
//
// A Network is built once from a genome and then evaluated many times. All
// buffers are sized at construction so Execute never allocates. A Network is
// not safe for concurrent use, but distinct Networks can be evaluated from
// different goroutines without coordination.
package nn

import (
	"errors"
	"fmt"
)

// ErrInputSize is returned by Activate when the input arity is wrong.
var ErrInputSize = errors.New("input size mismatch")

// Info describes the node layout shared by genomes and networks: inputs
// first, then outputs, then hidden nodes in creation order.
type Info struct {
	Inputs  int
	Outputs int
	Hidden  int
}

// NodeCount returns the total number of nodes.
func (i Info) NodeCount() int {
	return i.Inputs + i.Outputs + i.Hidden
}

// Node is a node slot of a compiled network.
type Node struct {
	Activation      Activation
	Sum             float32 // Running input sum of the current evaluation.
	Bias            float32
	ConnectionCount int // Number of outgoing connection slots.
	FirstConnection int // Index of the first outgoing connection slot.
	Depth           int

	fn ActivationFunc
}

// Value returns activation(sum + bias).
func (n *Node) Value() float32 {
	return n.fn(n.Sum + n.Bias)
}

// Connection is a connection slot of a compiled network.
type Connection struct {
	To     int
	Weight float32
	Value  float32 // Signal sent during the last evaluation.
}

// NodeSpec describes one node handed to New.
type NodeSpec struct {
	Activation Activation
	Bias       float32
	Depth      int
}

// ConnectionSpec describes one connection handed to New.
type ConnectionSpec struct {
	From   int
	To     int
	Weight float32
}

// Network is a flattened feed-forward network.
//
// Node slots and connection slots live in two contiguous arrays. The outgoing
// connections of a node occupy connections[FirstConnection:FirstConnection+ConnectionCount],
// and the groups are laid out in execution order.
type Network struct {
	info        Info
	nodes       []Node
	connections []Connection
	order       []int
	output      []float32
}

// New compiles a network. order must be a topological order of all nodes;
// connections may be given in any order and are regrouped by source.
func New(info Info, nodes []NodeSpec, connections []ConnectionSpec, order []int) (*Network, error) {
	nodeCount := info.NodeCount()
	if len(nodes) != nodeCount {
		return nil, fmt.Errorf("network expects %d nodes, got %d", nodeCount, len(nodes))
	}
	if len(order) != nodeCount {
		return nil, fmt.Errorf("execution order covers %d nodes, network has %d", len(order), nodeCount)
	}

	// position[i] is the place of node i in the execution order.
	position := make([]int, nodeCount)
	for i := range position {
		position[i] = -1
	}
	for p, i := range order {
		if i < 0 || i >= nodeCount || position[i] != -1 {
			return nil, fmt.Errorf("invalid execution order entry %d at position %d", i, p)
		}
		position[i] = p
	}

	net := &Network{
		info:        info,
		nodes:       make([]Node, nodeCount),
		connections: make([]Connection, len(connections)),
		order:       append([]int(nil), order...),
		output:      make([]float32, info.Outputs),
	}
	for i, spec := range nodes {
		net.nodes[i] = Node{
			Activation: spec.Activation,
			Bias:       spec.Bias,
			Depth:      spec.Depth,
			fn:         spec.Activation.Func(),
		}
	}

	for _, c := range connections {
		if c.From < 0 || c.From >= nodeCount || c.To < 0 || c.To >= nodeCount {
			return nil, fmt.Errorf("connection %d -> %d out of range", c.From, c.To)
		}
		if position[c.From] >= position[c.To] {
			return nil, fmt.Errorf("connection %d -> %d goes against the execution order", c.From, c.To)
		}
		net.nodes[c.From].ConnectionCount++
	}

	offset := 0
	for _, i := range order {
		net.nodes[i].FirstConnection = offset
		offset += net.nodes[i].ConnectionCount
	}

	// Counting sort: stable within each source group.
	cursor := make([]int, nodeCount)
	for _, c := range connections {
		slot := net.nodes[c.From].FirstConnection + cursor[c.From]
		cursor[c.From]++
		net.connections[slot] = Connection{To: c.To, Weight: c.Weight}
	}

	return net, nil
}

// Execute evaluates the network. It returns false, without touching any
// state, when len(input) differs from the number of inputs.
func (n *Network) Execute(input []float32) bool {
	if len(input) != n.info.Inputs {
		return false
	}

	for i := range n.nodes {
		n.nodes[i].Sum = 0
	}
	// Inputs go straight into the sums, bypassing activation.
	for i, v := range input {
		n.nodes[i].Sum = v
	}

	for _, i := range n.order {
		node := &n.nodes[i]
		if node.ConnectionCount == 0 {
			continue
		}
		value := node.fn(node.Sum + node.Bias)
		outs := n.connections[node.FirstConnection : node.FirstConnection+node.ConnectionCount]
		for c := range outs {
			conn := &outs[c]
			conn.Value = value * conn.Weight
			n.nodes[conn.To].Sum += conn.Value
		}
	}

	for i := range n.output {
		n.output[i] = n.nodes[n.info.Inputs+i].Value()
	}
	return true
}

// Output returns the result buffer of the last successful Execute.
// The slice is reused by the next call.
func (n *Network) Output() []float32 {
	return n.output
}

// Activate runs Execute and returns the output buffer.
func (n *Network) Activate(input []float32) ([]float32, error) {
	if !n.Execute(input) {
		return nil, fmt.Errorf("%w: got %d inputs, network has %d", ErrInputSize, len(input), n.info.Inputs)
	}
	return n.output, nil
}

// Info returns the node layout.
func (n *Network) Info() Info {
	return n.info
}

// NodeCount returns the number of node slots.
func (n *Network) NodeCount() int {
	return len(n.nodes)
}

// ConnectionCount returns the number of connection slots.
func (n *Network) ConnectionCount() int {
	return len(n.connections)
}

// Node returns a copy of node slot i.
func (n *Network) Node(i int) Node {
	return n.nodes[i]
}

// Connection returns a copy of connection slot i.
func (n *Network) Connection(i int) Connection {
	return n.connections[i]
}

// Order returns a copy of the execution order.
func (n *Network) Order() []int {
	return append([]int(nil), n.order...)
}

// Depth returns the largest node depth, which is the depth of the outputs.
func (n *Network) Depth() int {
	depth := 0
	for i := range n.nodes {
		depth = max(depth, n.nodes[i].Depth)
	}
	return depth
}

// ForEachNode calls fn for every node slot in storage order.
func (n *Network) ForEachNode(fn func(i int, node Node)) {
	for i := range n.nodes {
		fn(i, n.nodes[i])
	}
}

// ForEachConnection calls fn for every connection slot together with the
// index of its source node.
func (n *Network) ForEachConnection(fn func(from int, c Connection)) {
	for _, i := range n.order {
		node := &n.nodes[i]
		for c := node.FirstConnection; c < node.FirstConnection+node.ConnectionCount; c++ {
			fn(i, n.connections[c])
		}
	}
}
