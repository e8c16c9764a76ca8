package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptrackio/ptrack/internal/graph"
)

// barbell builds an eight-vertex barbell: two K4-like clusters (a0..a3,
// b0..b3) joined by a single edge, all weights 1, per spec.md scenario 3.
func barbell(t *testing.T) *graph.Undirected {
	t.Helper()
	g := graph.NewUndirected()
	cluster1 := []string{"a0", "a1", "a2", "a3"}
	cluster2 := []string{"b0", "b1", "b2", "b3"}
	for _, n := range append(append([]string{}, cluster1...), cluster2...) {
		require.NoError(t, g.AddNode(n))
	}
	clique := func(names []string) {
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				require.NoError(t, g.AddEdge(names[i], names[j], 1))
			}
		}
	}
	clique(cluster1)
	clique(cluster2)
	require.NoError(t, g.AddEdge("a0", "b0", 1))
	return g
}

func TestStoerWagnerGlobalMinCutCanonical(t *testing.T) {
	g := barbell(t)

	weight := StoerWagner(g)

	assert.Equal(t, uint64(1), weight)

	side0 := g.AllNodesInPartition(0)
	side1 := g.AllNodesInPartition(1)
	assert.Len(t, side0, 4)
	assert.Len(t, side1, 4)

	cluster1 := []string{"a0", "a1", "a2", "a3"}
	cluster2 := []string{"b0", "b1", "b2", "b3"}
	label1 := g.Partition("a0")
	for _, n := range cluster1 {
		assert.Equalf(t, label1, g.Partition(n), "vertex %s", n)
	}
	label2 := g.Partition("b0")
	for _, n := range cluster2 {
		assert.Equalf(t, label2, g.Partition(n), "vertex %s", n)
	}
	assert.NotEqual(t, label1, label2)
}

func TestStoerWagnerEmptyGraph(t *testing.T) {
	g := graph.NewUndirected()
	assert.Equal(t, uint64(0), StoerWagner(g))
}

func TestStoerWagnerSingleVertex(t *testing.T) {
	g := graph.NewUndirected()
	require.NoError(t, g.AddNode("solo"))
	assert.Equal(t, uint64(0), StoerWagner(g))
	assert.Equal(t, 0, g.Partition("solo"))
}

// Scenario 4: s-t cut biased by boosting one internal edge's weight.
func TestSTMinCutBiased(t *testing.T) {
	g := barbell(t)
	// Boost the edge between a1 and a2 (internal to cluster 1) to weight 2.
	require.NoError(t, g.AddEdge("a1", "a2", 1)) // coalesces: 1 + 1 = 2

	weight, err := STMinCut(g, "a1", "a2")
	require.NoError(t, err)

	assert.Equal(t, 0, g.Partition("a1"))
	assert.Equal(t, 1, g.Partition("a2"))
	assert.True(t, weight > 0)
}

func TestSTMinCutMissingVertexIsHardError(t *testing.T) {
	g := barbell(t)
	_, err := STMinCut(g, "a0", "ghost")
	require.Error(t, err)
}

func TestSTMinCutFlowEqualsCrossingWeight(t *testing.T) {
	g := barbell(t)
	weight, err := STMinCut(g, "a0", "b0")
	require.NoError(t, err)

	var crossing uint64
	for _, e := range g.AllEdges() {
		if g.Partition(e.Src) != g.Partition(e.Dst) {
			crossing += e.Weight
		}
	}
	assert.Equal(t, weight, crossing)
	assert.Equal(t, uint64(1), weight)
}
