package neat

import (
	"fmt"
	"math/rand"
)

// MutationKind identifies a structural mutation.
type MutationKind uint8

const (
	MutationNone MutationKind = iota
	MutationNewConnection
	MutationNewNode
)

// String implements fmt.Stringer.
func (k MutationKind) String() string {
	switch k {
	case MutationNone:
		return "none"
	case MutationNewConnection:
		return "new_connection"
	case MutationNewNode:
		return "new_node"
	default:
		return fmt.Sprintf("mutation(%d)", uint8(k))
	}
}

// Mutation records one applied structural mutation.
//
// For a new connection, From and To are its endpoints and InnovationID is the
// connection id. For a new node, From and To are the endpoints of the split
// connection and InnovationID is the node id; it is followed by the records of
// the two connections the split created.
type Mutation struct {
	Kind         MutationKind
	From         int
	To           int
	InnovationID uint32
}

// MutatorState is the part of a Mutator that survives a checkpoint.
type MutatorState struct {
	NextConnectionID uint32
	NextNodeID       uint32
	History          []Mutation
}

// Mutator applies random structural mutations and mints innovation ids.
//
// Connection and node ids come from two separate counters. Ids are only minted
// for mutations that were actually applied, and identical mutations in
// different genomes get different ids. A Mutator is not safe for concurrent use.
type Mutator struct {
	cfg     MutationConfig
	rng     *rand.Rand
	metrics *Metrics

	nextConnectionID uint32
	nextNodeID       uint32
	history          []Mutation
}

// NewMutator creates a mutator for genomes with the given number of inputs
// and outputs. Node ids start right after the input and output nodes, and
// connection ids after the ids reserved by Genome.ConnectAll.
func NewMutator(cfg MutationConfig, rng *rand.Rand, inputs, outputs int) *Mutator {
	return &Mutator{
		cfg:              cfg,
		rng:              rng,
		nextConnectionID: uint32(inputs * outputs),
		nextNodeID:       uint32(inputs + outputs),
	}
}

// Mutate draws one structural mutation and applies it to g. It returns the kind
// actually applied: MutationNone when nothing was drawn, when the drawn edge
// was rejected by the graph, or when there was no active connection to split.
func (m *Mutator) Mutate(g *Genome) MutationKind {
	kind := MutationNone
	r := m.rng.Float64()
	switch {
	case r < m.cfg.ConnAddProb:
		if m.addConnection(g) {
			kind = MutationNewConnection
		}
	case r < m.cfg.ConnAddProb+m.cfg.NodeAddProb:
		if m.addNode(g) {
			kind = MutationNewNode
		}
	}
	m.metrics.observeMutation(kind)
	return kind
}

// addConnection links a random source (input or hidden) to a random
// destination (output or hidden).
func (m *Mutator) addConnection(g *Genome) bool {
	sources := g.Info.Inputs + g.Info.Hidden
	destinations := g.Info.Outputs + g.Info.Hidden
	if sources == 0 || destinations == 0 {
		return false
	}

	from := m.rng.Intn(sources)
	if from >= g.Info.Inputs {
		from += g.Info.Outputs // Skip the output block
	}
	to := g.Info.Inputs + m.rng.Intn(destinations)

	gene := ConnectionGene{
		From:         from,
		To:           to,
		Weight:       float32(m.cfg.NewConnectionWeight),
		InnovationID: m.nextConnectionID,
	}
	if !g.tryCreateGene(gene) {
		m.metrics.observeRejectedConnection()
		return false
	}

	m.history = append(m.history, Mutation{Kind: MutationNewConnection, From: from, To: to, InnovationID: m.nextConnectionID})
	m.nextConnectionID++
	return true
}

// addNode splits a uniformly chosen active connection.
func (m *Mutator) addNode(g *Genome) bool {
	active := make([]int, 0, len(g.Connections))
	for i, c := range g.Connections {
		if c.Active {
			active = append(active, i)
		}
	}
	if len(active) == 0 {
		return false
	}

	i := active[m.rng.Intn(len(active))]
	split := g.Connections[i]
	first, second := m.nextConnectionID, m.nextConnectionID+1
	n := g.splitConnection(i, first, second)
	if n < 0 {
		return false
	}

	m.history = append(m.history,
		Mutation{Kind: MutationNewNode, From: split.From, To: split.To, InnovationID: m.nextNodeID},
		Mutation{Kind: MutationNewConnection, From: split.From, To: n, InnovationID: first},
		Mutation{Kind: MutationNewConnection, From: n, To: split.To, InnovationID: second},
	)
	m.nextNodeID++
	m.nextConnectionID += 2
	return true
}

// History returns a copy of every applied mutation in order.
func (m *Mutator) History() []Mutation {
	return append([]Mutation(nil), m.history...)
}

// State returns a snapshot of the counters and history.
func (m *Mutator) State() MutatorState {
	return MutatorState{
		NextConnectionID: m.nextConnectionID,
		NextNodeID:       m.nextNodeID,
		History:          m.History(),
	}
}

// Restore replaces the counters and history with a snapshot.
func (m *Mutator) Restore(state MutatorState) {
	m.nextConnectionID = state.NextConnectionID
	m.nextNodeID = state.NextNodeID
	m.history = append([]Mutation(nil), state.History...)
}

// --- Weight mutation ---

// MutateWeights perturbs or replaces the weight of every active connection and
// the bias of every non-input node, following cfg.
func MutateWeights(g *Genome, rng *rand.Rand, cfg WeightConfig) {
	for i := range g.Connections {
		c := &g.Connections[i]
		if !c.Active {
			continue
		}
		c.Weight = mutateFloatAttribute(rng, c.Weight,
			cfg.WeightPerturbRate, cfg.WeightReplaceRate, cfg.WeightMutatePower, cfg.WeightRange, cfg.WeightMaxValue)
	}
	// Input biases are never used and not stored in genome files.
	for i := g.Info.Inputs; i < len(g.Nodes); i++ {
		bias := mutateFloatAttribute(rng, g.Nodes[i].Bias,
			cfg.BiasMutateRate, cfg.BiasReplaceRate, cfg.BiasMutatePower, cfg.BiasRange, cfg.BiasMaxValue)
		g.SetBias(i, bias)
	}
}
