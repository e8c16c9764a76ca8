package artifactstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptrackio/ptrack/pkg/config"
)

func TestNewLocalStore(t *testing.T) {
	t.Run("CreateWithDefaultPath", func(t *testing.T) {
		tempDir := t.TempDir()
		defaultPath := filepath.Join(tempDir, "artifacts")

		store, err := NewLocalStore(defaultPath)
		require.NoError(t, err)
		require.NotNil(t, store)

		info, err := os.Stat(defaultPath)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("CreateWithEmptyPath", func(t *testing.T) {
		origDir, err := os.Getwd()
		require.NoError(t, err)
		defer os.Chdir(origDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		store, err := NewLocalStore("")
		require.NoError(t, err)
		assert.Equal(t, "./artifacts", store.GetBasePath())
	})
}

func TestLocalStore_UploadAndDownload(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStore(tempDir)
	require.NoError(t, err)

	content := []byte("digraph G { main -> kernel; }")
	require.NoError(t, store.Upload(context.Background(), "run-1/graph.dot", bytes.NewReader(content)))

	reader, err := store.Download(context.Background(), "run-1/graph.dot")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestLocalStore_UploadFile(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStore(tempDir)
	require.NoError(t, err)

	srcFile := filepath.Join(tempDir, "graph.dot")
	content := []byte("graph G {}")
	require.NoError(t, os.WriteFile(srcFile, content, 0644))

	require.NoError(t, store.UploadFile(context.Background(), "run-2/graph.dot", srcFile))

	destPath := filepath.Join(tempDir, "run-2", "graph.dot")
	data, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	err = store.UploadFile(context.Background(), "dest.txt", "/nonexistent/path.txt")
	assert.Error(t, err)
}

func TestLocalStore_DeleteAndExists(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStore(tempDir)
	require.NoError(t, err)

	require.NoError(t, store.Upload(context.Background(), "to-delete.dot", bytes.NewReader([]byte("x"))))

	exists, err := store.Exists(context.Background(), "to-delete.dot")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(context.Background(), "to-delete.dot"))

	exists, err = store.Exists(context.Background(), "to-delete.dot")
	require.NoError(t, err)
	assert.False(t, exists)

	// deleting an already-missing key is not an error
	assert.NoError(t, store.Delete(context.Background(), "to-delete.dot"))
}

func TestLocalStore_GetURL(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStore(tempDir)
	require.NoError(t, err)

	got := store.GetURL("run-3/graph.dot")
	assert.Equal(t, filepath.Join(tempDir, "run-3/graph.dot"), got)
}

func TestNew_Local(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.StorageConfig{
		Type:      "local",
		LocalPath: tempDir,
	}

	store, err := New(cfg)
	require.NoError(t, err)

	_, ok := store.(*LocalStore)
	assert.True(t, ok)
}

func TestNew_RejectsUnknownType(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.StorageConfig{
		Type:      "unknown",
		LocalPath: tempDir,
	}

	_, err := New(cfg)
	assert.Error(t, err)
}
