// Package analysisdriver implements the teardown-time orchestration that
// turns a recorded FunctionGraph into a partition decision: load
// parallel-function hints, build the cost graph, pin host-only library
// functions, run the s-t partition between the two architecture anchors,
// report the result, and write the DOT graph.
package analysisdriver

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/ptrackio/ptrack/internal/funcgraph"
	"github.com/ptrackio/ptrack/internal/graph"
	"github.com/ptrackio/ptrack/internal/partition"
	apperrors "github.com/ptrackio/ptrack/pkg/errors"
	"github.com/ptrackio/ptrack/pkg/utils"
)

// tracerName identifies this package's spans in whatever TracerProvider is
// globally installed (a no-op unless pkg/telemetry.Init has been called).
const tracerName = "ptrack.analysisdriver"

// HostPinnedFunctions is the fixed list of host-only library functions
// pinned to anchor 0 on teardown, verbatim from the original tool's
// interface.cpp PIN(...) macro calls.
var HostPinnedFunctions = []string{
	"fopen", "fclose", "fputc", "fputs", "putc", "putchar", "puts",
	"printf", "fprintf", "fread", "fwrite", "fseek", "unlink",
	"gettimeofday", "settimeofday",
	"sprintf", "atoi", "malloc", "calloc", "free",
	"strcmp", "strncmp", "strcat", "strncat", "strcpy", "strncpy", "strchr",
}

// DotOutputPath is the fixed path teardown writes the cost graph to.
const DotOutputPath = "graph.dot"

// Result is the summary produced by a single teardown run.
type Result struct {
	RunID       string
	Arch0Anchor string
	Arch1Anchor string

	TotalCalls           uint64
	TotalAccesses        uint64
	CutWeight            uint64
	AcceleratorFunctions []string
	BoundaryFunctions    []string
	DotPath              string
}

// Recorder persists a completed Result. Implemented by internal/repository.
type Recorder interface {
	Persist(ctx context.Context, result *Result) error
}

// ArtifactUploader uploads a teardown artifact file. Implemented by
// internal/artifactstore.
type ArtifactUploader interface {
	UploadFile(ctx context.Context, key string, localPath string) error
}

// Driver glues together the cost-graph construction, pinning, and
// partitioning steps, plus the optional persistence/upload side effects.
type Driver struct {
	Logger   utils.Logger
	Recorder Recorder
	Uploader ArtifactUploader

	// Arch0Anchor/Arch1Anchor are the synthetic compute-anchor node names
	// to partition between; Arch0 receives the host-pinned functions.
	Arch0Anchor, Arch1Anchor string

	// DotPath overrides DotOutputPath, mainly for tests.
	DotPath string

	// PinnedFunctions overrides HostPinnedFunctions, mainly for tests.
	PinnedFunctions []string
}

// New constructs a Driver with sensible defaults; logger may be nil, in
// which case a NullLogger is used.
func New(arch0Anchor, arch1Anchor string, logger utils.Logger) *Driver {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	return &Driver{
		Logger:      logger,
		Arch0Anchor: arch0Anchor,
		Arch1Anchor: arch1Anchor,
	}
}

// LoadParallelHints feeds the hint lines read from r into fg's
// parallel-function list. A nil r (no hints file available) or a read error
// is a RecoverableIO condition: a warning naming sourceDescription is logged
// and execution continues without hints. Step 2 of teardown.
func (d *Driver) LoadParallelHints(fg *funcgraph.Graph, r io.Reader, sourceDescription string) {
	if r == nil {
		d.Logger.Warn("### WARNING: %s was not specified.", sourceDescription)
		return
	}
	if err := fg.LoadParallelFunctions(r); err != nil {
		d.Logger.Warn("### WARNING: %s could not be read: %v", sourceDescription, err)
		return
	}
	d.Logger.Info("### Loading parallelism data from '%s'.", sourceDescription)
}

// pinHostFunctions adds a weight-InfiniteWeight edge between anchor0 and
// every host-only library function that exists in g. Step 4 of teardown.
func (d *Driver) pinHostFunctions(g *graph.Undirected) {
	list := d.PinnedFunctions
	if list == nil {
		list = HostPinnedFunctions
	}
	for _, fn := range list {
		if g.Exists(fn) {
			_ = g.AddEdge(d.Arch0Anchor, fn, graph.InfiniteWeight)
		}
	}
}

// Run executes the full ordered teardown sequence described in spec.md
// §4.7 against an already-recorded FunctionGraph, returning the summary
// Result. parallelHints may be nil if no hints file was available.
func (d *Driver) Run(ctx context.Context, fg *funcgraph.Graph, parallelHints io.Reader, hintsSourceDescription string) (*Result, error) {
	tracer := otel.Tracer(tracerName)
	runID := uuid.New().String()
	timer := utils.NewTimer("teardown-"+runID, utils.WithLogger(d.Logger))

	// Step 1: summary of total calls and accesses.
	totalCalls := fg.TotalCalls()
	totalAccesses := fg.TotalAccesses()
	d.Logger.Info("### Recorded %d calls and %d memory accesses.", totalCalls, totalAccesses)

	// Step 2: optional parallelism hints.
	d.LoadParallelHints(fg, parallelHints, hintsSourceDescription)

	// Step 3: build the cost graph.
	_, span := tracer.Start(ctx, "build-cost-graph")
	pt := timer.Start("build-cost-graph")
	costGraph := fg.BuildCostGraph()
	pt.Stop()
	span.End()

	// Step 4: pin host-only library functions to anchor 0.
	_, span = tracer.Start(ctx, "pin-host-functions")
	pt = timer.Start("pin-host-functions")
	d.pinHostFunctions(costGraph)
	pt.Stop()
	span.End()

	// Step 5: run the s-t partition between the two architecture anchors.
	ctx, span = tracer.Start(ctx, "edmonds-karp")
	pt = timer.Start("edmonds-karp")
	cutWeight, err := partition.STMinCut(costGraph, d.Arch0Anchor, d.Arch1Anchor)
	pt.Stop()
	span.End()
	if err != nil {
		return nil, fmt.Errorf("analysisdriver: s-t partition failed: %w", err)
	}
	d.Logger.Info("### Partitioning has cost %d.", cutWeight)

	// Step 6: list accelerator-side functions.
	var accelerator []string
	for _, n := range costGraph.AllNodesInPartition(1) {
		if !graph.IsAnchor(n) {
			accelerator = append(accelerator, n)
		}
	}
	sort.Strings(accelerator)
	d.Logger.Info("### Functions to run on the %s:", d.Arch1Anchor)
	if len(accelerator) == 0 {
		d.Logger.Info("### No functions placed on the %s.", d.Arch1Anchor)
	} else {
		for _, n := range accelerator {
			d.Logger.Info("#   %s", n)
		}
	}

	// Step 7: sanity-check the anchors landed on the expected sides.
	if costGraph.Partition(d.Arch0Anchor) != 0 {
		d.Logger.Error("### ERROR: %s cost node mapped to %s.", d.Arch0Anchor, d.Arch1Anchor)
		return nil, apperrors.Wrap(apperrors.CodeInstrumentationBug, "arch0 anchor mislabeled", nil)
	}
	if len(accelerator) > 0 && costGraph.Partition(d.Arch1Anchor) != 1 {
		d.Logger.Error("### ERROR: %s cost node mapped to %s.", d.Arch1Anchor, d.Arch0Anchor)
		return nil, apperrors.Wrap(apperrors.CodeInstrumentationBug, "arch1 anchor mislabeled", nil)
	}

	// Step 8: boundary functions requiring explicit migration.
	var boundary []string
	acceleratorSet := make(map[string]bool, len(accelerator))
	for _, n := range accelerator {
		acceleratorSet[n] = true
	}
	d.Logger.Info("### Functions requiring explicit migration:")
	for _, n1 := range accelerator {
		isBoundary := false
		for _, n0 := range costGraph.AllNodesInPartition(0) {
			if graph.IsAnchor(n0) {
				continue
			}
			if fg.NumCalls(n0, n1) > 0 {
				isBoundary = true
				break
			}
		}
		if isBoundary {
			boundary = append(boundary, n1)
			d.Logger.Info("#|  %s", n1)
		}
	}

	// Step 9: write the cost graph to disk.
	dotPath := d.DotPath
	if dotPath == "" {
		dotPath = DotOutputPath
	}
	if err := costGraph.Draw(dotPath); err != nil {
		return nil, fmt.Errorf("analysisdriver: writing DOT graph: %w", err)
	}

	result := &Result{
		RunID:                runID,
		Arch0Anchor:          d.Arch0Anchor,
		Arch1Anchor:          d.Arch1Anchor,
		TotalCalls:           totalCalls,
		TotalAccesses:        totalAccesses,
		CutWeight:            cutWeight,
		AcceleratorFunctions: accelerator,
		BoundaryFunctions:    boundary,
		DotPath:              dotPath,
	}

	if d.Recorder != nil {
		_, span = tracer.Start(ctx, "persist-run")
		pt = timer.Start("persist-run")
		persistErr := d.Recorder.Persist(ctx, result)
		pt.Stop()
		span.End()
		if persistErr != nil {
			d.Logger.Error("### ERROR: failed to persist run: %v", persistErr)
		}
	}

	if d.Uploader != nil {
		_, span = tracer.Start(ctx, "upload-artifacts")
		pt = timer.Start("upload-artifacts")
		uploadErr := d.Uploader.UploadFile(ctx, dotPath, dotPath)
		pt.Stop()
		span.End()
		if uploadErr != nil {
			d.Logger.Error("### ERROR: failed to upload artifacts: %v", uploadErr)
		}
	}

	timer.PrintSummary()

	return result, nil
}
