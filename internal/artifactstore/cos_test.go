package artifactstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ptrackio/ptrack/pkg/config"
)

func TestNewCOSStore_Validation(t *testing.T) {
	t.Run("MissingBucket", func(t *testing.T) {
		cfg := &COSConfig{Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"}
		store, err := NewCOSStore(cfg)
		assert.Error(t, err)
		assert.Nil(t, store)
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		cfg := &COSConfig{Bucket: "b", Region: "ap-guangzhou"}
		store, err := NewCOSStore(cfg)
		assert.Error(t, err)
		assert.Nil(t, store)
	})

	t.Run("ValidConfig", func(t *testing.T) {
		cfg := &COSConfig{Bucket: "b", Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"}
		store, err := NewCOSStore(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, store)
	})
}

func TestCOSStore_GetURL(t *testing.T) {
	cfg := &COSConfig{Bucket: "my-bucket", Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"}
	store, err := NewCOSStore(cfg)
	assert.NoError(t, err)

	got := store.GetURL("run-4/graph.dot")
	assert.Equal(t, "https://my-bucket.cos.ap-guangzhou.myqcloud.com/run-4/graph.dot", got)
}

func TestNew_COS(t *testing.T) {
	cfg := &config.StorageConfig{
		Type:      "cos",
		Bucket:    "b",
		Region:    "ap-guangzhou",
		SecretID:  "id",
		SecretKey: "key",
	}

	store, err := New(cfg)
	assert.NoError(t, err)

	_, ok := store.(*COSStore)
	assert.True(t, ok)
}

func TestValidateConfig(t *testing.T) {
	t.Run("NilConfig", func(t *testing.T) {
		assert.Error(t, ValidateConfig(nil))
	})

	t.Run("COSMissingBucket", func(t *testing.T) {
		cfg := &config.StorageConfig{Type: "cos", Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"}
		assert.Error(t, ValidateConfig(cfg))
	})

	t.Run("LocalMissingPath", func(t *testing.T) {
		cfg := &config.StorageConfig{Type: "local"}
		assert.Error(t, ValidateConfig(cfg))
	})

	t.Run("ValidLocalConfig", func(t *testing.T) {
		cfg := &config.StorageConfig{Type: "local", LocalPath: "/tmp/ptrack-artifacts"}
		assert.NoError(t, ValidateConfig(cfg))
	})
}
