package neat

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/walkneat/neat/nn"
)

func TestMutateNewConnection(t *testing.T) {
	m := NewMutator(MutationConfig{ConnAddProb: 1, NewConnectionWeight: 0.5}, rand.New(rand.NewSource(1)), 2, 1)
	g := NewGenome(2, 1, nn.Sigmoid)

	applied := 0
	for i := 0; i < 50; i++ {
		if m.Mutate(g) == MutationNewConnection {
			applied++
		}
	}
	// Only in0 -> out and in1 -> out exist without hidden nodes.
	require.Equal(t, 2, applied)
	require.Len(t, g.Connections, 2)
	for i, c := range g.Connections {
		assert.Equal(t, uint32(2+i), c.InnovationID, "ids 0 and 1 belong to the initial connections")
		assert.Equal(t, float32(0.5), c.Weight)
		assert.Equal(t, 2, c.To)
	}

	state := m.State()
	assert.Equal(t, uint32(4), state.NextConnectionID, "rejected draws mint no id")
	assert.Equal(t, uint32(3), state.NextNodeID)
	require.Len(t, state.History, 2)
	assert.Equal(t, MutationNewConnection, state.History[0].Kind)
}

func TestMutateNewNode(t *testing.T) {
	m := NewMutator(MutationConfig{NodeAddProb: 1}, rand.New(rand.NewSource(1)), 2, 1)
	g := NewGenome(2, 1, nn.Sigmoid)
	assert.Equal(t, MutationNone, m.Mutate(g), "nothing to split")

	require.True(t, g.TryCreateConnection(1, 2, -0.25))
	require.Equal(t, MutationNewNode, m.Mutate(g))
	assert.Equal(t, 1, g.Info.Hidden)
	require.Len(t, g.Connections, 2)
	assert.Equal(t, ConnectionGene{From: 1, To: 3, Weight: -0.25, Active: true, InnovationID: 2}, g.Connections[0])
	assert.Equal(t, ConnectionGene{From: 3, To: 2, Weight: 1, Active: true, InnovationID: 3}, g.Connections[1])

	history := m.History()
	assert.Equal(t, []Mutation{
		{Kind: MutationNewNode, From: 1, To: 2, InnovationID: 3},
		{Kind: MutationNewConnection, From: 1, To: 3, InnovationID: 2},
		{Kind: MutationNewConnection, From: 3, To: 2, InnovationID: 3},
	}, history)
	assert.Equal(t, MutatorState{NextConnectionID: 4, NextNodeID: 4, History: history}, m.State())
}

func TestMutateNothingDrawn(t *testing.T) {
	m := NewMutator(MutationConfig{}, rand.New(rand.NewSource(1)), 1, 1)
	g := NewGenome(1, 1, nn.Sigmoid)
	for i := 0; i < 20; i++ {
		assert.Equal(t, MutationNone, m.Mutate(g))
	}
	assert.Empty(t, m.History())
}

func TestRandomMutationsKeepGenomeValid(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	m := NewMutator(MutationConfig{ConnAddProb: 0.6, NodeAddProb: 0.3}, rng, 4, 2)
	g := NewGenome(4, 2, nn.Tanh)
	g.ConnectAll(rng, 2)

	for i := 0; i < 300; i++ {
		m.Mutate(g)
		MutateWeights(g, rng, DefaultWeightConfig())
	}
	require.Positive(t, g.Info.Hidden)

	for _, c := range g.Connections {
		assert.False(t, g.IsOutput(c.From), "%v starts at an output", c)
		assert.False(t, g.IsInput(c.To), "%v ends at an input", c)
	}

	net := g.GenerateNetwork()
	require.Equal(t, g.ConnectionCount(), net.ConnectionCount())
	out, err := net.Activate([]float32{1, -1, 0.5, 0})
	require.NoError(t, err)
	for _, v := range out {
		assert.False(t, math.IsNaN(float64(v)))
	}
}

func TestMutatorRestore(t *testing.T) {
	state := MutatorState{NextConnectionID: 40, NextNodeID: 12, History: []Mutation{{Kind: MutationNewConnection, From: 0, To: 3, InnovationID: 39}}}
	m := NewMutator(MutationConfig{ConnAddProb: 1}, rand.New(rand.NewSource(1)), 2, 1)
	m.Restore(state)
	assert.Equal(t, state, m.State())

	g := NewGenome(2, 1, nn.Sigmoid)
	require.Equal(t, MutationNewConnection, m.Mutate(g))
	assert.Equal(t, uint32(40), g.Connections[0].InnovationID)
}

func TestMutateWeights(t *testing.T) {
	g := NewGenome(2, 1, nn.Sigmoid)
	require.True(t, g.TryCreateConnection(0, 2, 0.3))
	require.True(t, g.TryCreateConnection(1, 2, 0.6))
	g.Simplify(0.5) // Deactivates 0 -> 2
	g.Nodes[0].Bias = 0.7

	cfg := WeightConfig{WeightRange: 1, WeightReplaceRate: 1, WeightMaxValue: 10, BiasMaxValue: 10}
	MutateWeights(g, rand.New(rand.NewSource(5)), cfg)
	assert.Equal(t, float32(0.3), g.Connections[0].Weight, "inactive connections are left alone")
	assert.NotEqual(t, float32(0.6), g.Connections[1].Weight)
	assert.LessOrEqual(t, math.Abs(float64(g.Connections[1].Weight)), 1.0)
	assert.Equal(t, float32(0.7), g.Nodes[0].Bias, "input bias untouched")
	assert.Zero(t, g.Nodes[2].Bias, "bias rates are zero")

	cfg = WeightConfig{WeightPerturbRate: 1, WeightMutatePower: 100, WeightMaxValue: 3, BiasMutateRate: 1, BiasMutatePower: 100, BiasMaxValue: 2}
	rng := rand.New(rand.NewSource(6))
	for i := 0; i < 20; i++ {
		MutateWeights(g, rng, cfg)
		assert.LessOrEqual(t, math.Abs(float64(g.Connections[1].Weight)), 3.0)
		assert.LessOrEqual(t, math.Abs(float64(g.Nodes[2].Bias)), 2.0)
	}
}

func TestMutationKindString(t *testing.T) {
	assert.Equal(t, "none", MutationNone.String())
	assert.Equal(t, "new_connection", MutationNewConnection.String())
	assert.Equal(t, "new_node", MutationNewNode.String())
}

func TestMutatorIDsFollowInitialConnections(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	g := NewGenome(3, 2, nn.Sigmoid)
	g.ConnectAll(rng, 1)
	require.Len(t, g.Connections, 6)
	seen := map[uint32]bool{}
	for _, c := range g.Connections {
		assert.Equal(t, uint32(c.From*2+c.To-3), c.InnovationID)
		seen[c.InnovationID] = true
	}

	m := NewMutator(MutationConfig{NodeAddProb: 1}, rng, 3, 2)
	for i := 0; i < 5; i++ {
		require.Equal(t, MutationNewNode, m.Mutate(g))
	}
	minted := 0
	for _, mu := range m.History() {
		if mu.Kind != MutationNewConnection {
			continue
		}
		assert.False(t, seen[mu.InnovationID], "connection id %d reused", mu.InnovationID)
		seen[mu.InnovationID] = true
		minted++
	}
	assert.Equal(t, 10, minted, "every minted connection id is logged")
	assert.Equal(t, uint32(16), m.State().NextConnectionID)
}
