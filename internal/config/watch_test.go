package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oneCamera = `equipment:
  - id: 1
    name: "Canon EOS R5"
    category: "camera"
    is_active: true
`

const cameraAndLaptop = `equipment:
  - id: 1
    name: "Canon EOS R5"
    category: "camera"
    is_active: true
  - id: 2
    name: "Dell XPS 15"
    is_active: true
`

func writeCatalog(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestWatchCatalog_InitialLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equipment.yaml")
	writeCatalog(t, path, oneCamera)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	var last *CatalogConfig
	err := WatchCatalog(ctx, path, time.Hour, func(c *CatalogConfig) {
		calls++
		last = c
	})
	require.NoError(t, err)

	// the first apply happens before WatchCatalog returns
	require.Equal(t, 1, calls)
	require.NotNil(t, last)
	require.Len(t, last.Equipment, 1)
	assert.Equal(t, "Canon EOS R5", last.Equipment[0].Name)
	assert.Equal(t, "camera", last.Equipment[0].Category)
}

func TestWatchCatalog_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	err := WatchCatalog(context.Background(), path, time.Hour, nil)
	require.Error(t, err)
}

func TestCatalogWatcher_ReloadTracksModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equipment.yaml")
	writeCatalog(t, path, oneCamera)

	var applied []*CatalogConfig
	w := &catalogWatcher{path: path, onUpdate: func(c *CatalogConfig) {
		applied = append(applied, c)
	}}

	require.NoError(t, w.reload())
	require.Len(t, applied, 1)
	assert.False(t, w.changed(), "freshly applied file must not read as changed")

	// a newer modification time is what makes a poll reload
	bump := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, bump, bump))
	assert.True(t, w.changed())

	writeCatalog(t, path, cameraAndLaptop)
	bump = bump.Add(time.Hour)
	require.NoError(t, os.Chtimes(path, bump, bump))

	require.NoError(t, w.reload())
	require.Len(t, applied, 2)
	require.Len(t, applied[1].Equipment, 2)
	assert.Equal(t, "general", applied[1].Equipment[1].Category, "missing category should be defaulted")
	assert.False(t, w.changed())
}

func TestCatalogWatcher_BrokenFileKeepsLastGood(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equipment.yaml")
	writeCatalog(t, path, oneCamera)

	var calls int
	w := &catalogWatcher{path: path, onUpdate: func(*CatalogConfig) { calls++ }}
	require.NoError(t, w.reload())
	require.Equal(t, 1, calls)

	writeCatalog(t, path, "equipment: []\n")
	bump := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, bump, bump))

	require.True(t, w.changed())
	require.Error(t, w.reload())
	assert.Equal(t, 1, calls, "a broken catalog must not be applied")
	assert.True(t, w.changed(), "failed reload must stay pending for the next tick")
}
