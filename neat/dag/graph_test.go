package dag

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

func newGraph(t *testing.T, n int) (*Graph, []NodeID) {
	t.Helper()
	g := New()
	ids := make([]NodeID, n)
	for i := range ids {
		ids[i] = g.CreateNode()
	}
	return g, ids
}

// mirror copies g into a gonum graph so acyclicity can be checked independently.
func mirror(g *Graph) *simple.DirectedGraph {
	m := simple.NewDirectedGraph()
	for i := 0; i < g.Len(); i++ {
		m.AddNode(simple.Node(i))
	}
	for i := 0; i < g.Len(); i++ {
		for _, out := range g.NodeAt(i).Outs {
			j, _ := g.Index(out)
			m.SetEdge(m.NewEdge(simple.Node(i), simple.Node(j)))
		}
	}
	return m
}

func assertDepths(t *testing.T, g *Graph) {
	t.Helper()
	for i := 0; i < g.Len(); i++ {
		n := g.NodeAt(i)
		want := 0
		if !n.IsStart() {
			for _, p := range n.Ins {
				want = max(want, g.Depth(p)+1)
			}
		}
		assert.Equal(t, want, n.Depth, "depth of %v", n.ID)
	}
}

func assertOrder(t *testing.T, g *Graph) {
	t.Helper()
	order := g.Order()
	require.Len(t, order, g.Len())
	pos := make(map[int]int, len(order))
	for p, i := range order {
		_, dup := pos[i]
		require.False(t, dup, "node %d appears twice in order", i)
		pos[i] = p
	}
	for i := 0; i < g.Len(); i++ {
		for _, out := range g.NodeAt(i).Outs {
			j, _ := g.Index(out)
			assert.Less(t, pos[i], pos[j], "edge %d -> %d out of order", i, j)
		}
	}
}

func TestNodeIDsAreStableAndDistinct(t *testing.T) {
	g, ids := newGraph(t, 3)
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, ids[2], NodeIDFrom(ids[2].Uint32()))

	i, ok := g.Index(ids[1])
	require.True(t, ok)
	assert.Equal(t, ids[1], g.ID(i))
	assert.False(t, g.Has(NodeIDFrom(99)))
}

func TestConnectRejectsCyclesDuplicatesAndSelfLoops(t *testing.T) {
	g, ids := newGraph(t, 3)
	a, b, c := ids[0], ids[1], ids[2]

	require.True(t, g.Connect(a, b))
	require.True(t, g.Connect(b, c))

	assert.False(t, g.Connect(a, b), "duplicate edge")
	assert.False(t, g.Connect(c, a), "closes a->b->c->a")
	assert.False(t, g.Connect(b, a), "closes a->b->a")
	assert.False(t, g.Connect(a, a), "self loop")
	assert.False(t, g.Connect(a, NodeIDFrom(42)), "unknown node")
	assert.Equal(t, 2, g.EdgeCount())

	assert.True(t, g.Connect(a, c), "shortcut is still acyclic")
	assert.Equal(t, 3, g.EdgeCount())
}

func TestRejectedConnectLeavesStateUntouched(t *testing.T) {
	g, ids := newGraph(t, 3)
	require.True(t, g.Connect(ids[0], ids[1]))
	require.True(t, g.Connect(ids[1], ids[2]))
	before := g.Clone()

	require.False(t, g.Connect(ids[2], ids[0]))
	assert.Equal(t, before.nodes, g.nodes)
	assert.Equal(t, before.order, g.order)
	assert.Equal(t, before.edges, g.edges)
}

func TestDepths(t *testing.T) {
	g, ids := newGraph(t, 5)
	a, b, c, d, e := ids[0], ids[1], ids[2], ids[3], ids[4]

	require.True(t, g.Connect(a, b))
	require.True(t, g.Connect(b, c))
	require.True(t, g.Connect(a, c))
	require.True(t, g.Connect(d, c))

	assert.Equal(t, 0, g.Depth(a))
	assert.Equal(t, 1, g.Depth(b))
	assert.Equal(t, 2, g.Depth(c))
	assert.Equal(t, 0, g.Depth(d))
	assert.Equal(t, 0, g.Depth(e))
	assert.Equal(t, 2, g.MaxDepth())

	g.Disconnect(b, c)
	assert.Equal(t, 1, g.Depth(c))
	assert.False(t, g.IsConnected(b, c))
	assertOrder(t, g)
}

func TestDisconnectMissingEdgeIsNoop(t *testing.T) {
	g, ids := newGraph(t, 2)
	g.Disconnect(ids[0], ids[1])
	assert.Equal(t, 0, g.EdgeCount())
}

func TestSplit(t *testing.T) {
	g, ids := newGraph(t, 2)
	require.True(t, g.Connect(ids[0], ids[1]))

	n := g.Split(ids[0], ids[1])
	assert.Equal(t, 3, g.Len())
	assert.False(t, g.IsConnected(ids[0], ids[1]))
	assert.True(t, g.IsConnected(ids[0], n))
	assert.True(t, g.IsConnected(n, ids[1]))
	assert.Equal(t, 1, g.Depth(n))
	assert.Equal(t, 2, g.Depth(ids[1]))
	assert.Equal(t, 2, g.EdgeCount())
	assertOrder(t, g)
}

func TestSplitMissingEdgePanics(t *testing.T) {
	g, ids := newGraph(t, 2)
	assert.Panics(t, func() { g.Split(ids[0], ids[1]) })
}

func TestComputeDepthsPanicsOnCycle(t *testing.T) {
	g, ids := newGraph(t, 2)
	require.True(t, g.Connect(ids[0], ids[1]))
	// Bypass Connect to plant the cycle.
	g.link(ids[1], ids[0])
	assert.Panics(t, g.ComputeDepths)
}

func TestCanReachMatchesGonum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g, ids := newGraph(t, 12)
	for i := 0; i < 60; i++ {
		g.Connect(ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))])
	}
	m := mirror(g)
	for i := range ids {
		for j := range ids {
			want := i == j || topo.PathExistsIn(m, simple.Node(i), simple.Node(j))
			assert.Equal(t, want, g.CanReach(ids[i], ids[j]), "%d -> %d", i, j)
		}
	}
}

func TestRandomEditsKeepGraphAcyclic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g, ids := newGraph(t, 8)

	for step := 0; step < 500; step++ {
		from := ids[rng.Intn(len(ids))]
		to := ids[rng.Intn(len(ids))]
		switch r := rng.Float64(); {
		case r < 0.7:
			g.Connect(from, to)
		case r < 0.85:
			g.Disconnect(from, to)
		default:
			if g.IsConnected(from, to) {
				ids = append(ids, g.Split(from, to))
			}
		}

		_, err := topo.Sort(mirror(g))
		require.NoError(t, err, "cycle after step %d", step)
		for _, id := range ids {
			require.False(t, g.IsConnected(id, id))
		}
	}
	assertDepths(t, g)
	assertOrder(t, g)
}

func TestCloneIsIndependent(t *testing.T) {
	g, ids := newGraph(t, 3)
	require.True(t, g.Connect(ids[0], ids[1]))

	c := g.Clone()
	require.True(t, c.Connect(ids[1], ids[2]))
	c.SetBias(ids[0], 1.5)

	assert.False(t, g.IsConnected(ids[1], ids[2]))
	assert.Equal(t, 1, g.EdgeCount())
	n, _ := g.Node(ids[0])
	assert.Zero(t, n.Bias)
	assert.Equal(t, 2, c.Depth(ids[2]))
}
