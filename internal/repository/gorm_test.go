package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ptrackio/ptrack/internal/analysisdriver"
	"github.com/ptrackio/ptrack/pkg/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&PartitionRunRecord{})
	require.NoError(t, err)

	return db
}

func TestGormPartitionRunRepository_SaveAndGetRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPartitionRunRepository(db)
	ctx := context.Background()

	run := &model.PartitionRun{
		RunID:                "run-1",
		Arch0Anchor:          "&host",
		Arch1Anchor:          "&accel",
		TotalCalls:           10,
		TotalAccesses:        500,
		CutWeight:            42,
		AcceleratorFunctions: []string{"kernel", "helper"},
		BoundaryFunctions:    []string{"kernel"},
		DotArtifactKey:       "graph.dot",
	}
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRunByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Arch0Anchor, got.Arch0Anchor)
	assert.Equal(t, run.Arch1Anchor, got.Arch1Anchor)
	assert.Equal(t, run.TotalCalls, got.TotalCalls)
	assert.Equal(t, run.TotalAccesses, got.TotalAccesses)
	assert.Equal(t, run.CutWeight, got.CutWeight)
	assert.ElementsMatch(t, run.AcceleratorFunctions, got.AcceleratorFunctions)
	assert.ElementsMatch(t, run.BoundaryFunctions, got.BoundaryFunctions)
}

func TestGormPartitionRunRepository_GetRunByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPartitionRunRepository(db)

	_, err := repo.GetRunByID(context.Background(), "ghost")
	require.Error(t, err)
}

func TestGormPartitionRunRepository_ListRecentRuns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPartitionRunRepository(db)
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, repo.SaveRun(ctx, &model.PartitionRun{RunID: id}))
	}

	runs, err := repo.ListRecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].RunID)
	assert.Equal(t, "run-b", runs[1].RunID)
}

func TestGormPartitionRunRepository_PersistFromDriverResult(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPartitionRunRepository(db)
	ctx := context.Background()

	result := &analysisdriver.Result{
		RunID:                "run-x",
		Arch0Anchor:          "&host",
		Arch1Anchor:          "&accel",
		TotalCalls:           3,
		TotalAccesses:        7,
		CutWeight:            9,
		AcceleratorFunctions: []string{"kernel"},
		DotPath:              "graph.dot",
	}

	var recorder analysisdriver.Recorder = repo
	require.NoError(t, recorder.Persist(ctx, result))

	got, err := repo.GetRunByID(ctx, "run-x")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got.CutWeight)
	assert.Equal(t, "graph.dot", got.DotArtifactKey)
}
