// Package artifactstore provides object storage abstraction for the DOT
// cost graphs and partition summaries a teardown run produces. It backs
// internal/analysisdriver.ArtifactUploader.
package artifactstore

import (
	"context"
	"fmt"
	"io"

	"github.com/ptrackio/ptrack/pkg/config"
)

// Store defines the interface for artifact storage operations.
type Store interface {
	// Upload uploads data from reader to the specified key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// UploadFile uploads a local file to the specified key.
	UploadFile(ctx context.Context, key string, localPath string) error

	// Download downloads data from the specified key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// DownloadFile downloads data from the specified key to a local file.
	DownloadFile(ctx context.Context, key string, localPath string) error

	// Delete deletes the object at the specified key.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the URL for the specified key, used by the status
	// page to link to a run's uploaded graph.dot.
	GetURL(key string) string
}

// StoreType represents the type of artifact storage backend.
type StoreType string

const (
	StoreTypeLocal StoreType = "local"
	StoreTypeCOS   StoreType = "cos"
)

// New creates a new Store instance based on the configuration.
func New(cfg *config.StorageConfig) (Store, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch StoreType(cfg.Type) {
	case StoreTypeLocal, StoreType(""):
		return NewLocalStore(cfg.LocalPath)
	case StoreTypeCOS:
		return NewCOSStore(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return NewLocalStore(cfg.LocalPath)
	}
}

// ValidateConfig validates the artifact storage configuration.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return fmt.Errorf("storage config is nil")
	}

	storeType := StoreType(cfg.Type)
	if storeType == "" {
		storeType = StoreTypeLocal
	}

	if storeType != StoreTypeCOS && storeType != StoreTypeLocal {
		return fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	if storeType == StoreTypeCOS {
		if cfg.Bucket == "" {
			return fmt.Errorf("COS bucket is required")
		}
		if cfg.Region == "" {
			return fmt.Errorf("COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return fmt.Errorf("COS credentials are required")
		}
	}

	if storeType == StoreTypeLocal {
		if cfg.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	}

	return nil
}
