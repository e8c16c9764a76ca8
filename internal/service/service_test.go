package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptrackio/ptrack/internal/eventlog"
	"github.com/ptrackio/ptrack/internal/testutil"
	"github.com/ptrackio/ptrack/pkg/config"
	"github.com/ptrackio/ptrack/pkg/utils"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := testutil.TempDir(t)
	cfg := &config.Config{
		Partition: config.DefaultPartitionConfig(),
		Database: config.DatabaseConfig{
			Type:     "sqlite",
			Database: filepath.Join(dir, "ptrack.db"),
		},
		Storage: config.StorageConfig{
			Type:      "local",
			LocalPath: filepath.Join(dir, "artifacts"),
		},
	}
	cfg.Partition.DataDir = filepath.Join(dir, "data")
	return cfg
}

func writeEventLog(t *testing.T, dir, name string, build func(*eventlog.Encoder)) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	build(eventlog.NewEncoder(f))
	require.NoError(t, f.Close())
	return path
}

func TestService_New(t *testing.T) {
	cfg := testConfig(t)

	t.Run("WithLogger", func(t *testing.T) {
		logger := utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
		svc, err := New(cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, svc)
		assert.False(t, svc.IsRunning())
	})

	t.Run("WithoutLogger", func(t *testing.T) {
		svc, err := New(cfg, nil)
		require.NoError(t, err)
		require.NotNil(t, svc)
	})

	t.Run("NilConfig", func(t *testing.T) {
		_, err := New(nil, nil)
		assert.Error(t, err)
	})
}

func TestService_InitializeAndReplay(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg, utils.NewDefaultLogger(utils.LevelError, os.Stdout))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx))
	assert.True(t, svc.IsRunning())
	defer svc.Stop()

	require.NoError(t, svc.HealthCheck(ctx))

	dir := testutil.TempDir(t)
	logPath := writeEventLog(t, dir, "trace.jsonl", func(enc *eventlog.Encoder) {
		require.NoError(t, enc.Enter("main"))
		require.NoError(t, enc.Call("main", "compute"))
		require.NoError(t, enc.Write("compute", 0x1000))
		require.NoError(t, enc.Read("compute", 0x1000))
	})

	result, err := svc.ReplayFile(ctx, logPath)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.RunID)

	runs, err := svc.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].RunID)
}

func TestService_ReplayFiles(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg, utils.NewDefaultLogger(utils.LevelError, os.Stdout))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx))
	defer svc.Stop()

	dir := testutil.TempDir(t)
	paths := make([]string, 3)
	for i := range paths {
		paths[i] = writeEventLog(t, dir, fmt.Sprintf("trace-%d.jsonl", i), func(enc *eventlog.Encoder) {
			require.NoError(t, enc.Call("main", "work"))
		})
	}

	results, err := svc.ReplayFiles(ctx, paths)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		require.NotNil(t, r)
	}
}

func TestService_ReplayFiles_Empty(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg, nil)
	require.NoError(t, err)

	results, err := svc.ReplayFiles(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, results)
}

func TestService_ReplayFile_MissingFile(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg, utils.NewDefaultLogger(utils.LevelError, os.Stdout))
	require.NoError(t, err)
	require.NoError(t, svc.Initialize(context.Background()))
	defer svc.Stop()

	_, err = svc.ReplayFile(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestService_StopBeforeInitialize(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, svc.Stop())
	assert.False(t, svc.IsRunning())
}
