// Package config provides configuration management for the ptrack service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Partition PartitionConfig `mapstructure:"partition"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
}

// ArchConfig names one of the two architectures a run partitions between
// and its per-access compute cost model.
type ArchConfig struct {
	Name                 string `mapstructure:"name"`
	PerAccessComputeCost uint64 `mapstructure:"per_access_compute_cost"`
	Parallelism          uint64 `mapstructure:"parallelism"`
}

// PartitionConfig holds the cost model and replay settings a teardown run
// partitions with.
type PartitionConfig struct {
	MigrationCost     uint64     `mapstructure:"migration_cost"`
	PageFaultCost     uint64     `mapstructure:"page_fault_cost"`
	Arch0             ArchConfig `mapstructure:"arch0"`
	Arch1             ArchConfig `mapstructure:"arch1"`
	ParallelHintsPath string     `mapstructure:"parallel_hints_path"`
	DataDir           string     `mapstructure:"data_dir"`
	MaxWorker         int        `mapstructure:"max_worker"`
}

// DefaultPartitionConfig returns the cost model used by the original
// Popcorn Linux partitioner: a host Xeon (E5-2609 @ 2.5GHz) migrating work
// onto a Xeon Phi (3120A @ 1.1GHz) accelerator, in nanoseconds.
func DefaultPartitionConfig() PartitionConfig {
	const (
		bias            = 1
		xeonComputeCost = 5
		xeonParallelism = 4
		phiSlowdown     = 11
		phiParallelism  = 57 * 4
	)
	return PartitionConfig{
		MigrationCost: 900 * 1000 * 4,
		PageFaultCost: 50 * 1000,
		Arch0: ArchConfig{
			Name:                 "&xeon",
			PerAccessComputeCost: xeonComputeCost * bias,
			Parallelism:          xeonParallelism,
		},
		Arch1: ArchConfig{
			Name:                 "&xeon-phi",
			PerAccessComputeCost: xeonComputeCost * phiSlowdown * bias,
			Parallelism:          phiParallelism,
		},
		DataDir:   "./data",
		MaxWorker: 5,
	}
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // sqlite, postgres, or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds artifact storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/ptrack")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values, the Xeon/Xeon-Phi cost
// model from DefaultPartitionConfig.
func setDefaults(v *viper.Viper) {
	def := DefaultPartitionConfig()
	v.SetDefault("partition.migration_cost", def.MigrationCost)
	v.SetDefault("partition.page_fault_cost", def.PageFaultCost)
	v.SetDefault("partition.arch0.name", def.Arch0.Name)
	v.SetDefault("partition.arch0.per_access_compute_cost", def.Arch0.PerAccessComputeCost)
	v.SetDefault("partition.arch0.parallelism", def.Arch0.Parallelism)
	v.SetDefault("partition.arch1.name", def.Arch1.Name)
	v.SetDefault("partition.arch1.per_access_compute_cost", def.Arch1.PerAccessComputeCost)
	v.SetDefault("partition.arch1.parallelism", def.Arch1.Parallelism)
	v.SetDefault("partition.data_dir", def.DataDir)
	v.SetDefault("partition.max_worker", def.MaxWorker)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.database", "ptrack.db")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./artifacts")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.Type != "sqlite" && c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Partition.Arch0.Name == "" || c.Partition.Arch1.Name == "" {
		return fmt.Errorf("both partition architectures must be named")
	}
	if c.Partition.Arch0.Name == c.Partition.Arch1.Name {
		return fmt.Errorf("partition architectures must have distinct names")
	}

	if c.Partition.MaxWorker < 1 {
		return fmt.Errorf("max worker count must be at least 1")
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Partition.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Partition.DataDir, 0755)
}

// GetRunDir returns the run-specific directory path.
func (c *Config) GetRunDir(runID string) string {
	return filepath.Join(c.Partition.DataDir, runID)
}
