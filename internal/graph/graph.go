// Package graph implements a generic labeled, weighted multigraph with
// duplicate-edge coalescing, partition labels on vertices, and DOT-format
// rendering, in both a directed and an undirected flavor.
package graph

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"sync"

	apperrors "github.com/ptrackio/ptrack/pkg/errors"
)

// InfiniteWeight pins an edge's endpoints to the same side of any cut. No
// arithmetic on weights may exceed 2^63; this constant is the agreed
// sentinel for "infinite" and is small enough that summing a handful of
// them never overflows a signed 64-bit accumulator.
const InfiniteWeight uint64 = 1 << 60

// AnchorPrefix marks a vertex name as a synthetic compute-anchor node.
// Anchor nodes are always filtered from result listings and rendered
// distinctly in DOT output.
const AnchorPrefix = "&"

// Edge is a materialized (src, dst, weight) triple, used for enumeration and
// DOT rendering. For an Undirected graph, Src/Dst reflect the order the edge
// was first added in, not a canonical order.
type Edge struct {
	Src    string
	Dst    string
	Weight uint64
}

type edgeKey struct {
	a, b string
}

// Graph is the shared implementation behind Directed and Undirected.
// Construct one with NewDirected / NewUndirected.
type Graph struct {
	mu        sync.RWMutex
	directed  bool
	nodeOrder []string
	nodes     map[string]struct{}
	partition map[string]int
	weights   map[edgeKey]uint64
	// firstSeen records the (src, dst) orientation an edge was first added
	// with, so Draw and AllEdges have a deterministic, meaningful direction
	// to print even for the undirected case.
	firstSeen map[edgeKey]Edge
	edgeOrder []edgeKey
}

func newGraph(directed bool) *Graph {
	return &Graph{
		directed:  directed,
		nodes:     make(map[string]struct{}),
		partition: make(map[string]int),
		weights:   make(map[edgeKey]uint64),
		firstSeen: make(map[edgeKey]Edge),
	}
}

func (g *Graph) canon(src, dst string) edgeKey {
	if g.directed || src <= dst {
		return edgeKey{src, dst}
	}
	return edgeKey{dst, src}
}

// AddNode inserts a new vertex. It is an InstrumentationBug to add a node
// that already exists by content.
func (g *Graph) AddNode(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[name]; ok {
		return apperrors.Wrap(apperrors.CodeInstrumentationBug,
			fmt.Sprintf("node %q already exists", name), nil)
	}
	g.nodes[name] = struct{}{}
	g.nodeOrder = append(g.nodeOrder, name)
	g.partition[name] = 0
	return nil
}

// Exists reports whether name has been added.
func (g *Graph) Exists(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[name]
	return ok
}

// AddEdge adds weight to the edge between src and dst, creating it if
// necessary. Both endpoints must already exist. For an undirected graph,
// (a,b) and (b,a) refer to the same edge.
func (g *Graph) AddEdge(src, dst string, weight uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[src]; !ok {
		return apperrors.Wrap(apperrors.CodeInstrumentationBug,
			fmt.Sprintf("addEdge: source node %q does not exist", src), nil)
	}
	if _, ok := g.nodes[dst]; !ok {
		return apperrors.Wrap(apperrors.CodeInstrumentationBug,
			fmt.Sprintf("addEdge: destination node %q does not exist", dst), nil)
	}

	key := g.canon(src, dst)
	if _, ok := g.weights[key]; !ok {
		g.edgeOrder = append(g.edgeOrder, key)
		g.firstSeen[key] = Edge{Src: src, Dst: dst}
	}
	g.weights[key] += weight
	return nil
}

// Edge returns the weight of the edge between src and dst, or 0 if none
// exists.
func (g *Graph) Edge(src, dst string) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.weights[g.canon(src, dst)]
}

// AllNodes returns every vertex name, in insertion order.
func (g *Graph) AllNodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

// AllNodesInPartition returns every vertex whose partition label equals
// label, in insertion order.
func (g *Graph) AllNodesInPartition(label int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []string
	for _, n := range g.nodeOrder {
		if g.partition[n] == label {
			out = append(out, n)
		}
	}
	return out
}

// Partition returns the current partition label of name (0 if unset or
// missing).
func (g *Graph) Partition(name string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.partition[name]
}

// SetPartition assigns a partition label to an existing vertex.
func (g *Graph) SetPartition(name string, label int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[name]; !ok {
		return apperrors.Wrap(apperrors.CodeInstrumentationBug,
			fmt.Sprintf("setPartition: node %q does not exist", name), nil)
	}
	g.partition[name] = label
	return nil
}

// SumEdges returns the sum of all edge weights, each undirected edge
// counted once.
func (g *Graph) SumEdges() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var total uint64
	for _, w := range g.weights {
		total += w
	}
	return total
}

// NumNodes returns the number of vertices.
func (g *Graph) NumNodes() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodeOrder)
}

// AllEdges returns every edge in insertion order, orientated as first added.
func (g *Graph) AllEdges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		e := g.firstSeen[key]
		e.Weight = g.weights[key]
		out = append(out, e)
	}
	return out
}

// Neighbors returns every vertex connected to name by at least one edge, in
// no particular order. For a directed graph this follows out-edges only.
func (g *Graph) Neighbors(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range g.weights {
		if g.directed {
			if key.a == name {
				seen[key.b] = struct{}{}
			}
			continue
		}
		if key.a == name {
			seen[key.b] = struct{}{}
		} else if key.b == name {
			seen[key.a] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// IsAnchor reports whether name is a synthetic compute-anchor node.
func IsAnchor(name string) bool {
	return len(name) > 0 && name[:1] == AnchorPrefix
}

// Draw writes a DOT-format rendering of the graph to path.
func (g *Graph) Draw(path string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRecoverableIO, "failed to create DOT output", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	kind, op := "graph", "--"
	if g.directed {
		kind, op = "digraph", "->"
	}

	fmt.Fprintf(w, "%s G {\n", kind)
	for _, n := range g.nodeOrder {
		attrs := nodeAttrs(n, g.partition[n])
		if attrs == "" {
			fmt.Fprintf(w, "  %q;\n", n)
		} else {
			fmt.Fprintf(w, "  %q [%s];\n", n, attrs)
		}
	}
	for _, key := range g.edgeOrder {
		e := g.firstSeen[key]
		weight := g.weights[key]
		attrs := fmt.Sprintf("label=%q", fmt.Sprint(weight))
		if IsAnchor(e.Src) || IsAnchor(e.Dst) {
			attrs += ", style=dotted, color=blue, fontcolor=blue"
		}
		fmt.Fprintf(w, "  %q %s %q [%s];\n", e.Src, op, e.Dst, attrs)
	}
	fmt.Fprintln(w, "}")

	return w.Flush()
}

func nodeAttrs(name string, partition int) string {
	switch {
	case IsAnchor(name):
		return "shape=box, color=blue, fontcolor=blue"
	case partition == 1:
		return "shape=box, color=red, fontcolor=red"
	default:
		return ""
	}
}

// Directed is a directed labeled weighted multigraph.
type Directed struct{ *Graph }

// NewDirected creates an empty directed graph.
func NewDirected() *Directed {
	return &Directed{Graph: newGraph(true)}
}

// Undirected is an undirected labeled weighted multigraph. (a,b) and (b,a)
// name the same edge.
type Undirected struct{ *Graph }

// NewUndirected creates an empty undirected graph.
func NewUndirected() *Undirected {
	return &Undirected{Graph: newGraph(false)}
}
