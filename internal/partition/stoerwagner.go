// Package partition implements the two graph-cut algorithms used to derive
// a two-way function placement from a cost graph: global minimum cut
// (Stoer-Wagner) and s-t minimum cut via Edmonds-Karp max-flow.
package partition

import "github.com/ptrackio/ptrack/internal/graph"

// StoerWagner computes the global minimum cut of g and writes a 0/1
// partition label onto every vertex. An empty graph is not an error: it
// returns weight 0 and leaves no labels changed, per spec.
//
// Maintains a working set of super-vertices, each a subset of the original
// vertices, starting with one per original vertex. Each phase grows a set A
// by repeatedly adding the super-vertex most tightly connected to A,
// recording the "cut of the phase" as the weight from the last-added vertex
// to the rest of A, then merges the last two vertices added. The minimum
// cut overall is the minimum phase cut.
func StoerWagner(g *graph.Undirected) uint64 {
	nodes := g.AllNodes()
	n := len(nodes)
	if n == 0 {
		return 0
	}
	if n == 1 {
		_ = g.SetPartition(nodes[0], 0)
		return 0
	}

	idx := make(map[string]int, n)
	for i, name := range nodes {
		idx[name] = i
	}

	w := make([][]uint64, n)
	for i := range w {
		w[i] = make([]uint64, n)
	}
	for _, e := range g.AllEdges() {
		i, j := idx[e.Src], idx[e.Dst]
		if i == j {
			// Self-loops carry no partitioning meaning.
			continue
		}
		w[i][j] += e.Weight
		w[j][i] += e.Weight
	}

	merged := make([][]int, n)
	for i := range merged {
		merged[i] = []int{i}
	}
	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	remaining := n
	bestWeight := ^uint64(0)
	var bestGroup []int

	for remaining > 1 {
		inA := make([]bool, n)
		weightToA := make([]uint64, n)

		start := -1
		for i := 0; i < n; i++ {
			if active[i] {
				start = i
				break
			}
		}
		inA[start] = true
		order := []int{start}
		for i := 0; i < n; i++ {
			if active[i] && i != start {
				weightToA[i] = w[start][i]
			}
		}

		var s, t int
		for len(order) < remaining {
			sel := -1
			for i := 0; i < n; i++ {
				if !active[i] || inA[i] {
					continue
				}
				if sel == -1 || weightToA[i] > weightToA[sel] {
					sel = i
				}
			}
			s = order[len(order)-1]
			t = sel
			order = append(order, sel)
			inA[sel] = true
			for i := 0; i < n; i++ {
				if active[i] && !inA[i] {
					weightToA[i] += w[sel][i]
				}
			}
		}

		cutOfPhase := weightToA[t]
		if cutOfPhase < bestWeight {
			bestWeight = cutOfPhase
			bestGroup = append([]int(nil), merged[t]...)
		}

		for i := 0; i < n; i++ {
			if active[i] && i != s && i != t {
				w[s][i] += w[t][i]
				w[i][s] = w[s][i]
			}
		}
		merged[s] = append(merged[s], merged[t]...)
		active[t] = false
		remaining--
	}

	if bestGroup == nil {
		bestWeight = 0
	}

	inCut := make(map[int]bool, len(bestGroup))
	for _, i := range bestGroup {
		inCut[i] = true
	}
	for i, name := range nodes {
		label := 0
		if inCut[i] {
			label = 1
		}
		_ = g.SetPartition(name, label)
	}

	return bestWeight
}
