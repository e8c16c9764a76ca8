package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/ptrackio/ptrack/internal/analysisdriver"
	"github.com/ptrackio/ptrack/pkg/model"
	"github.com/ptrackio/ptrack/pkg/telemetry"
)

// DBConfig holds database configuration.
type DBConfig struct {
	Type     string `mapstructure:"type"` // sqlite, postgres, or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// DBType represents the database type.
type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypePostgres DBType = "postgres"
	DBTypeMySQL    DBType = "mysql"
)

// NewGormDB creates a new GORM database connection based on configuration.
// sqlite is the default for a standalone ptrackctl run; postgres and mysql
// are kept for a shared-database deployment behind ptrackctl serve.
func NewGormDB(cfg *DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch DBType(cfg.Type) {
	case DBTypeSQLite, DBType(""):
		path := cfg.Database
		if path == "" {
			path = "ptrack.db"
		}
		dialector = sqlite.Open(path)
	case DBTypePostgres, DBType("postgresql"):
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
		)
		dialector = postgres.Open(dsn)
	case DBTypeMySQL:
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("failed to enable telemetry: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(&PartitionRunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}

// GormPartitionRunRepository implements PartitionRunRepository using GORM.
// It also satisfies internal/analysisdriver.Recorder via Persist.
type GormPartitionRunRepository struct {
	db *gorm.DB
}

// NewGormPartitionRunRepository creates a new GormPartitionRunRepository.
func NewGormPartitionRunRepository(db *gorm.DB) *GormPartitionRunRepository {
	return &GormPartitionRunRepository{db: db}
}

// Persist implements analysisdriver.Recorder, adapting a teardown Result
// into a PartitionRun row.
func (r *GormPartitionRunRepository) Persist(ctx context.Context, result *analysisdriver.Result) error {
	return r.SaveRun(ctx, &model.PartitionRun{
		RunID:                result.RunID,
		Arch0Anchor:          result.Arch0Anchor,
		Arch1Anchor:          result.Arch1Anchor,
		TotalCalls:           result.TotalCalls,
		TotalAccesses:        result.TotalAccesses,
		CutWeight:            result.CutWeight,
		AcceleratorFunctions: result.AcceleratorFunctions,
		BoundaryFunctions:    result.BoundaryFunctions,
		DotArtifactKey:       result.DotPath,
		CreatedAt:            time.Now(),
	})
}

// SaveRun persists a completed teardown analysis.
func (r *GormPartitionRunRepository) SaveRun(ctx context.Context, run *model.PartitionRun) error {
	acceleratorJSON, err := marshalStrings(run.AcceleratorFunctions)
	if err != nil {
		return fmt.Errorf("failed to marshal accelerator functions: %w", err)
	}
	boundaryJSON, err := marshalStrings(run.BoundaryFunctions)
	if err != nil {
		return fmt.Errorf("failed to marshal boundary functions: %w", err)
	}

	record := &PartitionRunRecord{
		RunID:                run.RunID,
		Arch0Anchor:          run.Arch0Anchor,
		Arch1Anchor:          run.Arch1Anchor,
		TotalCalls:           run.TotalCalls,
		TotalAccesses:        run.TotalAccesses,
		CutWeight:            run.CutWeight,
		AcceleratorFunctions: acceleratorJSON,
		BoundaryFunctions:    boundaryJSON,
		DotArtifactKey:       run.DotArtifactKey,
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save partition run: %w", err)
	}

	return nil
}

// GetRunByID retrieves a run by its UUID.
func (r *GormPartitionRunRepository) GetRunByID(ctx context.Context, runID string) (*model.PartitionRun, error) {
	var record PartitionRunRecord

	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("partition run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get partition run: %w", err)
	}

	return record.ToModel()
}

// ListRecentRuns retrieves the most recent runs, newest first.
func (r *GormPartitionRunRepository) ListRecentRuns(ctx context.Context, limit int) ([]*model.PartitionRun, error) {
	var records []PartitionRunRecord

	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query partition runs: %w", err)
	}

	runs := make([]*model.PartitionRun, len(records))
	for i := range records {
		run, err := records[i].ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to decode partition run %s: %w", records[i].RunID, err)
		}
		runs[i] = run
	}

	return runs, nil
}

// Close closes the underlying database connection.
func (r *GormPartitionRunRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck verifies the database connection is still alive.
func (r *GormPartitionRunRepository) HealthCheck(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func marshalStrings(ss []string) (JSONField, error) {
	if ss == nil {
		return nil, nil
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return nil, err
	}
	return JSONField(b), nil
}
