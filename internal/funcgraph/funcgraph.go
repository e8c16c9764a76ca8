// Package funcgraph wraps a call-count graph and a page-fault graph behind
// the cost model that turns recorded program behavior into a partitionable
// cost graph.
package funcgraph

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ptrackio/ptrack/internal/graph"
	apperrors "github.com/ptrackio/ptrack/pkg/errors"
)

// CostParams are the per-architecture scaling factors for computation cost.
type CostParams struct {
	// PerAccessComputeCost is the cost, in the shared cost unit, of a
	// single memory access on this architecture.
	PerAccessComputeCost uint64
	// Parallelism divides computation cost for functions flagged parallel.
	Parallelism uint64
}

// Graph is the domain wrapper described by spec.md §3/§4.3: one call graph,
// one fault graph, a per-function parallel flag, two named architecture
// anchors with their own CostParams, and the two scalar migration/fault
// costs.
type Graph struct {
	archName [2]string
	cost     [2]CostParams

	isParallel map[string]bool

	migrationCost uint64
	pageFaultCost uint64

	callGraph  *graph.Directed
	faultGraph *graph.Directed
}

// New constructs a FunctionGraph for a two-architecture system. arch0/arch1
// name the synthetic compute-anchor nodes (conventionally starting with
// "&"); they are not added as graph nodes until BuildCostGraph needs them.
func New(migrationCost, pageFaultCost uint64, arch0Name string, arch0 CostParams, arch1Name string, arch1 CostParams) *Graph {
	return &Graph{
		archName:      [2]string{arch0Name, arch1Name},
		cost:          [2]CostParams{arch0, arch1},
		isParallel:    make(map[string]bool),
		migrationCost: migrationCost,
		pageFaultCost: pageFaultCost,
		callGraph:     graph.NewDirected(),
		faultGraph:    graph.NewDirected(),
	}
}

// NodeExists reports whether a node has already been created for f.
func (g *Graph) NodeExists(f string) bool {
	return g.callGraph.Exists(f)
}

// AddNode ensures f exists in both internal graphs and in isParallel
// (defaulted false). Idempotent.
func (g *Graph) AddNode(f string) {
	if g.NodeExists(f) {
		return
	}
	// AddNode can only fail if the node already exists, which NodeExists
	// above just ruled out for both graphs (they are kept in lockstep).
	_ = g.callGraph.AddNode(f)
	_ = g.faultGraph.AddNode(f)
	g.isParallel[f] = false
}

// SetParallelFunction marks f parallel (or not) and, when setting true,
// propagates the flag to every function reachable from f via positive-weight
// call edges. The propagation is a fixed-point iteration guarded against
// infinite recursion by skipping nodes already marked true.
func (g *Graph) SetParallelFunction(f string, parallel bool) {
	if !g.NodeExists(f) {
		return
	}
	if g.isParallel[f] == parallel {
		return
	}
	g.isParallel[f] = parallel
	if !parallel {
		return
	}

	queue := []string{f}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, callee := range g.callGraph.AllNodes() {
			if g.callGraph.Edge(cur, callee) == 0 {
				continue
			}
			if g.isParallel[callee] {
				continue
			}
			g.isParallel[callee] = true
			queue = append(queue, callee)
		}
	}
}

// LoadParallelFunctions reads one function name per line (trimmed) and
// marks each parallel. Blank lines are ignored. Names not present in the
// observed call graph are silently ignored, since SetParallelFunction no-ops
// on unknown nodes.
func (g *Graph) LoadParallelFunctions(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		g.SetParallelFunction(name, true)
	}
	if err := scanner.Err(); err != nil {
		return apperrors.Wrap(apperrors.CodeRecoverableIO, "failed reading parallel-functions file", err)
	}
	return nil
}

// Call records that caller dynamically called callee, adding either node if
// absent.
func (g *Graph) Call(caller, callee string) {
	g.AddNode(caller)
	g.AddNode(callee)
	_ = g.callGraph.AddEdge(caller, callee, 1)
}

// IncurPageFault records that accessor accessed a page most recently owned
// by previousOwner. previousOwner must already exist; accessor is added if
// absent. When accessor == previousOwner this records a non-fault.
func (g *Graph) IncurPageFault(accessor, previousOwner string, n uint64) error {
	if !g.NodeExists(previousOwner) {
		return apperrors.Wrap(apperrors.CodeInstrumentationBug,
			fmt.Sprintf("incurPageFault: previous owner %q does not exist", previousOwner), nil)
	}
	g.AddNode(accessor)
	return g.faultGraph.AddEdge(accessor, previousOwner, n)
}

// NumCalls returns the number of times caller directly called callee.
func (g *Graph) NumCalls(caller, callee string) uint64 {
	return g.callGraph.Edge(caller, callee)
}

// NumPageFaults returns the number of potential page faults incurred
// directly from function accessing a page owned by old.
func (g *Graph) NumPageFaults(function, old string) uint64 {
	return g.faultGraph.Edge(function, old)
}

// NumNonFaults returns the number of memory accesses by f guaranteed not to
// fault (accesses to pages f already owned).
func (g *Graph) NumNonFaults(f string) uint64 {
	return g.faultGraph.Edge(f, f)
}

// TotalAccesses returns the total number of memory accesses recorded across
// the whole program (faults and non-faults).
func (g *Graph) TotalAccesses() uint64 {
	var total uint64
	for _, e := range g.faultGraph.AllEdges() {
		total += e.Weight
	}
	return total
}

// TotalCalls returns the total number of dynamic call events recorded.
func (g *Graph) TotalCalls() uint64 {
	var total uint64
	for _, e := range g.callGraph.AllEdges() {
		total += e.Weight
	}
	return total
}

// totalAccessesFor sums the out-edges of f in the fault graph: every page
// access f ever performed, faulting or not.
func (g *Graph) totalAccessesFor(f string) uint64 {
	var total uint64
	for _, n := range g.faultGraph.AllNodes() {
		total += g.faultGraph.Edge(f, n)
	}
	return total
}

// EdgeCost is the local cost of a partitioning boundary between caller and
// callee, in the direction caller->callee only.
func (g *Graph) EdgeCost(caller, callee string) uint64 {
	return g.NumCalls(caller, callee)*g.migrationCost + g.NumPageFaults(caller, callee)*g.pageFaultCost
}

// ComputationCost is the cost of computing function on architecture (0 or
// 1), scaled by total memory accesses and divided by parallelism if the
// function is flagged parallel. Integer division; remainder dropped.
func (g *Graph) ComputationCost(function string, architecture int) uint64 {
	params := g.cost[architecture]
	accesses := g.totalAccessesFor(function)
	divisor := uint64(1)
	if g.isParallel[function] {
		divisor = params.Parallelism
	}
	return accesses * params.PerAccessComputeCost / divisor
}

// BuildCostGraph constructs the undirected cost graph per spec.md §3: an
// undirected edge of weight edgeCost(a,b) for every ordered pair with
// nonzero cost, plus anchor edges (arch[0], f, computationCost(f,1)) and
// (f, arch[1], computationCost(f,0)) for every function.
func (g *Graph) BuildCostGraph() *graph.Undirected {
	out := graph.NewUndirected()

	nodes := g.callGraph.AllNodes()
	for _, n := range nodes {
		_ = out.AddNode(n)
	}
	_ = out.AddNode(g.archName[0])
	_ = out.AddNode(g.archName[1])

	for _, a := range nodes {
		for _, b := range nodes {
			if a == b {
				continue
			}
			if cost := g.EdgeCost(a, b); cost > 0 {
				_ = out.AddEdge(a, b, cost)
			}
		}
	}

	for _, f := range nodes {
		_ = out.AddEdge(g.archName[0], f, g.ComputationCost(f, 1))
		_ = out.AddEdge(f, g.archName[1], g.ComputationCost(f, 0))
	}

	if out.Exists("main") {
		_ = out.AddEdge(g.archName[0], "main", graph.InfiniteWeight)
	}

	return out
}

// ArchNames returns the two architecture anchor names, in order.
func (g *Graph) ArchNames() (string, string) {
	return g.archName[0], g.archName[1]
}
