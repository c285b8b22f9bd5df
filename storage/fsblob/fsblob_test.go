package fsblob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/docquery/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ReadAndSize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("hello"), 0o644))

	store, err := NewStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := store.Exists(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "docs/missing.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	size, err := store.Size(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	data, err := store.Read(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestStore_MissingBlob(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Read(ctx, "nope.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Size(ctx, "nope.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_RejectsEscapingLocator(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Read(ctx, "../outside.txt")
	assert.Error(t, err)

	_, err = store.Exists(ctx, "../outside.txt")
	assert.Error(t, err)
}

func TestNewStore_MissingRoot(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
