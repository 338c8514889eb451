package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Store(ctx, "storage.json", []byte(`{"comments":[]}`)))
	require.NoError(t, store.Store(ctx, "backups/state-1.json", []byte(`{}`)))

	data, err := store.Retrieve(ctx, "storage.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"comments":[]}`, string(data))

	names, err := store.List(ctx, "backups/")
	require.NoError(t, err)
	assert.Equal(t, []string{"backups/state-1.json"}, names)

	require.NoError(t, store.Delete(ctx, "storage.json"))
	_, err = store.Retrieve(ctx, "storage.json")
	assert.True(t, errors.Is(err, ErrNotFound))

	// deleting twice is a no-op
	assert.NoError(t, store.Delete(ctx, "storage.json"))
}

func TestFileStore_RejectsEscapingNames(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../outside.json", "/etc/passwd", ".", "..", "backups/../../outside.json"} {
		assert.Error(t, store.Store(context.Background(), name, []byte("x")), name)
	}
}

func TestFileStore_AllowsDotPrefixedNames(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"..backup.json", "backups/..old.json"} {
		require.NoError(t, store.Store(ctx, name, []byte(`{}`)), name)
		data, err := store.Retrieve(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, `{}`, string(data))
	}
}
