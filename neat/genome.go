package neat

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/baldhumanity/walkneat/neat/dag"
	"github.com/baldhumanity/walkneat/neat/nn"
)

// Genome is the evolvable blueprint of a feed-forward network.
//
// Node indices are laid out as inputs [0, Inputs), outputs [Inputs, Inputs+Outputs)
// and hidden nodes after that, in creation order. Every active connection is
// mirrored as an edge of a DAG, which is what keeps the genome acyclic.
// A Genome must not be shared between population slots; use Clone.
type Genome struct {
	Info        nn.Info          // Node layout.
	Nodes       []NodeGene       // Indexed by node index.
	Connections []ConnectionGene // Creation order, swap-removed on split.

	graph *dag.Graph
	ids   []dag.NodeID // Node index -> graph node id.
}

// NewGenome creates a genome with input and output nodes only.
// Inputs use the identity activation; outputs use outputActivation.
func NewGenome(inputs, outputs int, outputActivation nn.Activation) *Genome {
	g := &Genome{
		Info:  nn.Info{Inputs: inputs, Outputs: outputs},
		graph: dag.New(),
	}
	for i := 0; i < inputs; i++ {
		g.CreateNode(nn.Identity, false)
	}
	for i := 0; i < outputs; i++ {
		g.CreateNode(outputActivation, false)
	}
	return g
}

// CreateNode appends a node and returns its index. Only hidden nodes may be
// created once the genome exists; non-hidden nodes are reserved for NewGenome.
func (g *Genome) CreateNode(activation nn.Activation, hidden bool) int {
	g.Nodes = append(g.Nodes, NodeGene{Activation: activation})
	g.ids = append(g.ids, g.graph.CreateNode())
	if hidden {
		g.Info.Hidden++
	}
	return len(g.Nodes) - 1
}

// TryCreateConnection adds an active connection if the graph accepts the edge.
// It returns false, leaving the genome unchanged, when the edge already exists
// or would close a cycle.
func (g *Genome) TryCreateConnection(from, to int, weight float32) bool {
	return g.tryCreateGene(ConnectionGene{From: from, To: to, Weight: weight, Active: true})
}

func (g *Genome) tryCreateGene(c ConnectionGene) bool {
	if !g.validIndex(c.From) || !g.validIndex(c.To) {
		return false
	}
	if !g.graph.Connect(g.ids[c.From], g.ids[c.To]) {
		return false
	}
	c.Active = true
	g.Connections = append(g.Connections, c)
	return true
}

// SplitConnection replaces active connection i (from -> to, weight w) by a new
// ReLU hidden node n with connections from -> n (weight w) and n -> to (weight 1).
// It returns the index of n, or -1 if i does not name an active connection.
func (g *Genome) SplitConnection(i int) int {
	return g.splitConnection(i, 0, 0)
}

func (g *Genome) splitConnection(i int, firstInnovation, secondInnovation uint32) int {
	if i < 0 || i >= len(g.Connections) || !g.Connections[i].Active {
		return -1
	}
	c := g.Connections[i]
	g.swapRemove(i)

	// The graph adds both edges without a reachability check: the new node
	// has no other edges, so the split cannot introduce a cycle.
	id := g.graph.Split(g.ids[c.From], g.ids[c.To])
	g.Nodes = append(g.Nodes, NodeGene{Activation: nn.ReLU})
	g.ids = append(g.ids, id)
	g.Info.Hidden++
	n := len(g.Nodes) - 1

	g.Connections = append(g.Connections,
		ConnectionGene{From: c.From, To: n, Weight: c.Weight, Active: true, InnovationID: firstInnovation},
		ConnectionGene{From: n, To: c.To, Weight: 1, Active: true, InnovationID: secondInnovation},
	)
	return n
}

// RemoveConnection deletes connection i.
func (g *Genome) RemoveConnection(i int) {
	if i < 0 || i >= len(g.Connections) {
		return
	}
	if c := g.Connections[i]; c.Active {
		g.graph.Disconnect(g.ids[c.From], g.ids[c.To])
	}
	g.swapRemove(i)
}

// swapRemove drops connection gene i without touching the graph.
func (g *Genome) swapRemove(i int) {
	last := len(g.Connections) - 1
	g.Connections[i] = g.Connections[last]
	g.Connections = g.Connections[:last]
}

// SetBias sets the bias of node i.
func (g *Genome) SetBias(i int, bias float32) {
	g.Nodes[i].Bias = bias
	g.graph.SetBias(g.ids[i], bias)
}

// SetOutputActivation changes the activation of every output node.
func (g *Genome) SetOutputActivation(activation nn.Activation) {
	for i := g.Info.Inputs; i < g.Info.Inputs+g.Info.Outputs; i++ {
		g.Nodes[i].Activation = activation
	}
}

// ConnectAll wires every input to every output with weights drawn uniformly
// in [-weightRange, weightRange). Existing edges are left untouched.
//
// Input in and output k get innovation id in*Outputs+k, the same in every
// genome. Mutators mint ids starting after these.
func (g *Genome) ConnectAll(rng *rand.Rand, weightRange float64) {
	for in := 0; in < g.Info.Inputs; in++ {
		for k := 0; k < g.Info.Outputs; k++ {
			g.tryCreateGene(ConnectionGene{
				From:         in,
				To:           g.Info.Inputs + k,
				Weight:       float32(uniform(rng, weightRange)),
				InnovationID: initialInnovationID(in, k, g.Info.Outputs),
			})
		}
	}
}

func initialInnovationID(input, output, outputs int) uint32 {
	return uint32(input*outputs + output)
}

// Simplify deactivates every active connection whose absolute weight is below
// threshold and returns how many were deactivated.
func (g *Genome) Simplify(threshold float32) int {
	removed := 0
	for i := range g.Connections {
		c := &g.Connections[i]
		if c.Active && float32(math.Abs(float64(c.Weight))) < threshold {
			g.graph.Disconnect(g.ids[c.From], g.ids[c.To])
			c.Active = false
			removed++
		}
	}
	return removed
}

// NodeCount returns the total number of nodes.
func (g *Genome) NodeCount() int {
	return len(g.Nodes)
}

// ConnectionCount returns the number of active connections.
func (g *Genome) ConnectionCount() int {
	count := 0
	for _, c := range g.Connections {
		if c.Active {
			count++
		}
	}
	return count
}

// IsInput reports whether node i is an input.
func (g *Genome) IsInput(i int) bool {
	return i >= 0 && i < g.Info.Inputs
}

// IsOutput reports whether node i is an output.
func (g *Genome) IsOutput(i int) bool {
	return i >= g.Info.Inputs && i < g.Info.Inputs+g.Info.Outputs
}

// Depth returns the topological depth of node i.
func (g *Genome) Depth(i int) int {
	return g.graph.Depth(g.ids[i])
}

// NodeID returns the stable graph id of node i.
func (g *Genome) NodeID(i int) dag.NodeID {
	return g.ids[i]
}

func (g *Genome) validIndex(i int) bool {
	return i >= 0 && i < len(g.Nodes)
}

// GenerateNetwork compiles the genome.
//
// Node slots keep the genome's node order and connection slots are grouped by
// source in execution order. Outputs get the largest depth in the graph, and
// at least 1, so they always sit after inputs and hidden nodes.
func (g *Genome) GenerateNetwork() *nn.Network {
	outputDepth := max(g.graph.MaxDepth(), 1)

	nodes := make([]nn.NodeSpec, len(g.Nodes))
	for i, n := range g.Nodes {
		depth := g.graph.Depth(g.ids[i])
		if g.IsOutput(i) {
			depth = outputDepth
		}
		nodes[i] = nn.NodeSpec{Activation: n.Activation, Bias: n.Bias, Depth: depth}
	}

	connections := make([]nn.ConnectionSpec, 0, len(g.Connections))
	for _, c := range g.Connections {
		if c.Active {
			connections = append(connections, nn.ConnectionSpec{From: c.From, To: c.To, Weight: c.Weight})
		}
	}

	// Graph positions match node indices: both only ever grow, in lockstep.
	net, err := nn.New(g.Info, nodes, connections, g.graph.Order())
	if err != nil {
		panic(fmt.Sprintf("genome compiled to an invalid network: %v", err))
	}
	return net
}

// Clone returns a deep copy of the genome.
func (g *Genome) Clone() *Genome {
	return &Genome{
		Info:        g.Info,
		Nodes:       append([]NodeGene(nil), g.Nodes...),
		Connections: append([]ConnectionGene(nil), g.Connections...),
		graph:       g.graph.Clone(),
		ids:         append([]dag.NodeID(nil), g.ids...),
	}
}

// String returns a short description of the genome.
func (g *Genome) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Genome(Inputs: %d, Outputs: %d, Hidden: %d, Connections: %d)",
		g.Info.Inputs, g.Info.Outputs, g.Info.Hidden, g.ConnectionCount())
	return sb.String()
}
