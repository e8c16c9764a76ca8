package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ptrackio/ptrack/internal/service"
	"github.com/ptrackio/ptrack/pkg/httpserve"
	"github.com/ptrackio/ptrack/pkg/utils"
)

var servePortOnly int

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status page over previously persisted partition runs",
	Long: `Start an HTTP status page listing partition runs already persisted to
the configured database, with links to their uploaded DOT cost graphs.

This does not replay anything; use "ptrackctl replay --serve" to replay
and then view the result in one step.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	binName := BinName()
	serveCmd.Example = `  # View past runs on the default port
  ` + binName + ` serve

  # Use a different port
  ` + binName + ` serve --port 9090`

	serveCmd.Flags().IntVarP(&servePortOnly, "port", "p", 8080, "Port for the status page")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	svc, err := service.New(GetConfig(), log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	if err := svc.Initialize(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer svc.Stop()

	return startServeMode(svc, servePortOnly, log)
}

// startServeMode is shared between replay --serve and the serve command.
func startServeMode(svc *service.Service, port int, log utils.Logger) error {
	server := httpserve.NewServer(svc, port, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutting down status page...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
		os.Exit(0)
	}()

	log.Info("")
	log.Info("ptrackctl status page: http://localhost:%d", port)
	log.Info("Press Ctrl+C to stop")
	log.Info("")

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
