package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ptrackio/ptrack/internal/analysisdriver"
	"github.com/ptrackio/ptrack/internal/service"
	"github.com/ptrackio/ptrack/pkg/utils"
)

var (
	// Replay command flags
	serveAfter bool
	servePort  int
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <event-log> [event-log...]",
	Short: "Replay one or more recorded event logs through the partitioner",
	Long: `Replay reads each recorded event log argument, runs it through a fresh
eventsink.Sink, and tears it down into an s-t partition decision between the
two configured architectures. Multiple files are replayed concurrently, each
with its own independent Sink.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	binName := BinName()
	replayCmd.Example = `  # Replay a single trace
  ` + binName + ` replay ./traces/run1.jsonl

  # Replay several traces concurrently and then view the status page
  ` + binName + ` replay ./traces/*.jsonl --serve`

	replayCmd.Flags().BoolVar(&serveAfter, "serve", false, "Start the status page after replay")
	replayCmd.Flags().IntVar(&servePort, "port", 8080, "Port for the status page (used with --serve)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	for _, path := range args {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("event log not found: %s", path)
		}
	}

	svc, err := service.New(GetConfig(), log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	ctx := context.Background()
	if err := svc.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer svc.Stop()

	log.Info("=== ptrackctl replay ===")
	log.Info("Event logs: %d", len(args))
	log.Info("")

	var results []*analysisdriver.Result
	if len(args) == 1 {
		result, err := svc.ReplayFile(ctx, args[0])
		if err != nil {
			return fmt.Errorf("replay failed: %w", err)
		}
		results = []*analysisdriver.Result{result}
	} else {
		results, err = svc.ReplayFiles(ctx, args)
		if err != nil {
			log.Warn("one or more replays failed: %v", err)
		}
	}

	printResults(log, args, results)

	log.Info("")
	log.Info("=== Replay Complete ===")

	if serveAfter {
		log.Info("")
		log.Info("Starting status page...")
		return startServeMode(svc, servePort, log)
	}

	return nil
}

func printResults(log utils.Logger, paths []string, results []*analysisdriver.Result) {
	for i, result := range results {
		if result == nil {
			continue
		}
		log.Info("--- %s ---", paths[i])
		log.Info("  Run ID:        %s", result.RunID)
		log.Info("  Boundary functions (called from %s side): %d", result.Arch0Anchor, len(result.BoundaryFunctions))
		log.Info("  Arch1 (%s): accelerator functions:        %d", result.Arch1Anchor, len(result.AcceleratorFunctions))
		log.Info("  Cut weight:    %d", result.CutWeight)
		log.Info("  Total calls:   %d", result.TotalCalls)
		log.Info("  Total accesses: %d", result.TotalAccesses)
		log.Info("  DOT graph:     %s", result.DotPath)
		log.Info("")
	}
}
