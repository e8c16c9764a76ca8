// Package service wires together the core partitioning engine and its
// ambient/domain dependencies (database, artifact storage, telemetry) into
// the single entry point the CLI drives.
package service

import (
	"context"
	"fmt"
	"os"

	"github.com/ptrackio/ptrack/internal/analysisdriver"
	"github.com/ptrackio/ptrack/internal/artifactstore"
	"github.com/ptrackio/ptrack/internal/eventlog"
	"github.com/ptrackio/ptrack/internal/eventsink"
	"github.com/ptrackio/ptrack/internal/funcgraph"
	"github.com/ptrackio/ptrack/internal/repository"
	"github.com/ptrackio/ptrack/pkg/config"
	apperrors "github.com/ptrackio/ptrack/pkg/errors"
	"github.com/ptrackio/ptrack/pkg/model"
	"github.com/ptrackio/ptrack/pkg/parallel"
	"github.com/ptrackio/ptrack/pkg/utils"
	"github.com/ptrackio/ptrack/pkg/writer"
)

var resultWriter = writer.NewPrettyJSONWriter[*analysisdriver.Result]()

// Service is the main application service: it owns the database connection,
// the artifact store, and the cost-model parameters a replay run is built
// with, and exposes ReplayFile/ReplayFiles as the single operation the CLI
// calls.
type Service struct {
	config *config.Config
	logger utils.Logger

	repo  *repository.GormPartitionRunRepository
	store artifactstore.Store

	running bool
}

// New creates a new Service instance. logger may be nil, in which case a
// DefaultLogger writing to stdout is used.
func New(cfg *config.Config, logger utils.Logger) (*Service, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.CodeConfigError, "service: nil config")
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	}

	return &Service{
		config: cfg,
		logger: logger,
	}, nil
}

// Initialize connects to the database and opens the artifact store.
func (s *Service) Initialize(ctx context.Context) error {
	s.logger.Info("Initializing service components...")

	if err := s.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := s.initStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := s.config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	s.running = true
	s.logger.Info("Service components initialized successfully")
	return nil
}

func (s *Service) initDatabase() error {
	s.logger.Info("Connecting to database (%s)...", s.config.Database.Type)

	dbConfig := &repository.DBConfig{
		Type:     s.config.Database.Type,
		Host:     s.config.Database.Host,
		Port:     s.config.Database.Port,
		Database: s.config.Database.Database,
		User:     s.config.Database.User,
		Password: s.config.Database.Password,
		MaxConns: s.config.Database.MaxConns,
	}

	gormDB, err := repository.NewGormDB(dbConfig)
	if err != nil {
		return err
	}

	s.repo = repository.NewGormPartitionRunRepository(gormDB)
	s.logger.Info("Database connection established")
	return nil
}

func (s *Service) initStorage() error {
	s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)

	store, err := artifactstore.New(&s.config.Storage)
	if err != nil {
		return err
	}

	s.store = store
	s.logger.Info("Storage initialized")
	return nil
}

// newDriver builds a Driver configured from the current PartitionConfig,
// writing its DOT output to dotPath when dotPath is non-empty.
func (s *Service) newDriver(dotPath string) *analysisdriver.Driver {
	p := s.config.Partition
	driver := analysisdriver.New(p.Arch0.Name, p.Arch1.Name, s.logger)
	driver.Recorder = s.repo
	driver.Uploader = s.store
	if dotPath != "" {
		driver.DotPath = dotPath
	}
	return driver
}

// ReplayFile replays a single recorded event log file through a fresh Sink
// and runs teardown against it, returning the partition Result. Each call
// owns an independent Sink and Driver: the core engine is single-threaded
// per recording, not process-wide, so ReplayFiles can run many of these
// concurrently.
func (s *Service) ReplayFile(ctx context.Context, eventLogPath string) (*analysisdriver.Result, error) {
	f, err := os.Open(eventLogPath)
	if err != nil {
		return nil, fmt.Errorf("service: opening event log %s: %w", eventLogPath, err)
	}
	defer f.Close()

	sink := eventsink.New()
	p := s.config.Partition
	arch0 := funcgraph.CostParams{PerAccessComputeCost: p.Arch0.PerAccessComputeCost, Parallelism: p.Arch0.Parallelism}
	arch1 := funcgraph.CostParams{PerAccessComputeCost: p.Arch1.PerAccessComputeCost, Parallelism: p.Arch1.Parallelism}
	if err := sink.Init(p.MigrationCost, p.PageFaultCost, p.Arch0.Name, arch0, p.Arch1.Name, arch1); err != nil {
		return nil, fmt.Errorf("service: initializing sink for %s: %w", eventLogPath, err)
	}

	n, err := eventlog.Replay(f, sink)
	if err != nil {
		return nil, fmt.Errorf("service: replaying %s (%d events applied): %w", eventLogPath, n, err)
	}

	fg, err := sink.Teardown()
	if err != nil {
		return nil, fmt.Errorf("service: tearing down %s: %w", eventLogPath, err)
	}

	dotPath := s.dotPathFor(eventLogPath)
	driver := s.newDriver(dotPath)

	var result *analysisdriver.Result
	if p.ParallelHintsPath == "" {
		result, err = driver.Run(ctx, fg, nil, p.ParallelHintsPath)
	} else if hints, openErr := os.Open(p.ParallelHintsPath); openErr == nil {
		defer hints.Close()
		result, err = driver.Run(ctx, fg, hints, p.ParallelHintsPath)
	} else {
		result, err = driver.Run(ctx, fg, nil, p.ParallelHintsPath)
	}
	if err != nil {
		return nil, err
	}

	summaryPath := dotPath[:len(dotPath)-len(".dot")] + ".summary.json"
	if err := resultWriter.WriteToFile(result, summaryPath); err != nil {
		s.logger.Warn("service: writing summary for %s: %v", eventLogPath, err)
	}

	return result, nil
}

func (s *Service) dotPathFor(eventLogPath string) string {
	runDir := s.config.GetRunDir(fmt.Sprintf("replay-%s", sanitizeRunComponent(eventLogPath)))
	return runDir + "-" + analysisdriver.DotOutputPath
}

// sanitizeRunComponent replaces path separators and spaces with '_' so an
// input file's whole path can be embedded in a run directory name.
func sanitizeRunComponent(path string) string {
	out := make([]byte, 0, len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '/' || c == '\\' || c == ' ' {
			out = append(out, '_')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// ReplayFiles fans ReplayFile out over multiple event log files concurrently,
// using the configured MaxWorker count, and returns one Result per input
// file in the same order (nil entries mark files that failed, logged but
// not fatal to the batch).
func (s *Service) ReplayFiles(ctx context.Context, eventLogPaths []string) ([]*analysisdriver.Result, error) {
	if len(eventLogPaths) == 0 {
		return nil, nil
	}

	poolConfig := parallel.DefaultPoolConfig().WithWorkers(s.config.Partition.MaxWorker)
	pool := parallel.NewWorkerPool[string, *analysisdriver.Result](poolConfig)

	taskResults := pool.ExecuteFunc(ctx, eventLogPaths, func(ctx context.Context, path string) (*analysisdriver.Result, error) {
		return s.ReplayFile(ctx, path)
	})

	results := make([]*analysisdriver.Result, len(taskResults))
	var firstErr error
	for i, tr := range taskResults {
		if tr.Error != nil {
			s.logger.Error("replay of %s failed: %v", tr.Input, tr.Error)
			if firstErr == nil {
				firstErr = tr.Error
			}
			continue
		}
		results[i] = tr.Result
	}

	return results, firstErr
}

// RecentRuns returns the most recently persisted partition runs, for the
// status page and for operators inspecting replay history.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]*model.PartitionRun, error) {
	return s.repo.ListRecentRuns(ctx, limit)
}

// ArtifactURL resolves the URL the status page links a stored DOT artifact
// to.
func (s *Service) ArtifactURL(key string) string {
	if s.store == nil {
		return ""
	}
	return s.store.GetURL(key)
}

// Stop closes the database connection.
func (s *Service) Stop() error {
	s.logger.Info("Stopping service...")
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			s.logger.Error("Failed to close database connection: %v", err)
		}
	}
	s.running = false
	s.logger.Info("Service stopped")
	return nil
}

// IsRunning returns whether the service has been initialized.
func (s *Service) IsRunning() bool {
	return s.running
}

// HealthCheck performs a health check on the service's database connection.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.repo != nil {
		if err := s.repo.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
	}
	return nil
}
