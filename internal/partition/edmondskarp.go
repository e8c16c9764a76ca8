package partition

import (
	"fmt"

	"github.com/ptrackio/ptrack/internal/graph"
	"github.com/ptrackio/ptrack/pkg/collections"
	apperrors "github.com/ptrackio/ptrack/pkg/errors"
)

// flowEdge is one directed arc of the residual network built from g. Every
// undirected edge (u,v,w) becomes two flowEdges that are each other's
// reverse, each starting with residual capacity w.
type flowEdge struct {
	to  int
	cap uint64
	rev int
}

// STMinCut computes the s-t minimum cut of g via Edmonds-Karp max-flow:
// repeatedly finding a shortest augmenting path by BFS and pushing its
// bottleneck residual capacity, until none remains. It then labels every
// vertex reachable from s in the residual graph 0, and every other vertex
// 1, and writes those labels onto g. Returns the max-flow value, which
// equals the s-t min-cut weight.
func STMinCut(g *graph.Undirected, s, t string) (uint64, error) {
	if !g.Exists(s) {
		return 0, apperrors.Wrap(apperrors.CodeAlgorithmicPrecondition,
			fmt.Sprintf("s-t cut: source %q does not exist", s), nil)
	}
	if !g.Exists(t) {
		return 0, apperrors.Wrap(apperrors.CodeAlgorithmicPrecondition,
			fmt.Sprintf("s-t cut: sink %q does not exist", t), nil)
	}

	nodes := g.AllNodes()
	n := len(nodes)
	idx := make(map[string]int, n)
	for i, name := range nodes {
		idx[name] = i
	}
	sIdx, tIdx := idx[s], idx[t]

	adj := make([][]flowEdge, n)
	addEdge := func(u, v int, w uint64) {
		adj[u] = append(adj[u], flowEdge{to: v, cap: w, rev: len(adj[v])})
		adj[v] = append(adj[v], flowEdge{to: u, cap: w, rev: len(adj[u]) - 1})
	}
	for _, e := range g.AllEdges() {
		i, j := idx[e.Src], idx[e.Dst]
		if i == j {
			continue
		}
		addEdge(i, j, e.Weight)
	}

	var maxFlow uint64
	for {
		parentEdge := make([]int, n)
		parentVertex := make([]int, n)
		for i := range parentVertex {
			parentVertex[i] = -1
		}
		parentVertex[sIdx] = sIdx

		queue := collections.NewQueue[int](n)
		queue.Enqueue(sIdx)
		for !queue.IsEmpty() && parentVertex[tIdx] == -1 {
			u, _ := queue.Dequeue()
			for ei, e := range adj[u] {
				if e.cap == 0 {
					continue
				}
				if parentVertex[e.to] != -1 {
					continue
				}
				parentVertex[e.to] = u
				parentEdge[e.to] = ei
				queue.Enqueue(e.to)
			}
		}

		if parentVertex[tIdx] == -1 {
			break
		}

		bottleneck := ^uint64(0)
		for v := tIdx; v != sIdx; v = parentVertex[v] {
			u := parentVertex[v]
			e := adj[u][parentEdge[v]]
			if e.cap < bottleneck {
				bottleneck = e.cap
			}
		}

		for v := tIdx; v != sIdx; v = parentVertex[v] {
			u := parentVertex[v]
			ei := parentEdge[v]
			adj[u][ei].cap -= bottleneck
			rev := adj[u][ei].rev
			adj[v][rev].cap += bottleneck
		}

		maxFlow += bottleneck
	}

	reachable := make([]bool, n)
	reachable[sIdx] = true
	stack := collections.NewStack[int](n)
	stack.Push(sIdx)
	for !stack.IsEmpty() {
		u, _ := stack.Pop()
		for _, e := range adj[u] {
			if e.cap == 0 || reachable[e.to] {
				continue
			}
			reachable[e.to] = true
			stack.Push(e.to)
		}
	}

	for i, name := range nodes {
		label := 1
		if reachable[i] {
			label = 0
		}
		_ = g.SetPartition(name, label)
	}

	return maxFlow, nil
}
