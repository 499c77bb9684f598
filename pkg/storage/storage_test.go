package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/nearbyExchanger/pkg/platform"
)

func openStores(t *testing.T) map[string]Storage {
	t.Helper()
	stores := make(map[string]Storage)
	for _, kind := range []string{KindJSON, KindSQLite} {
		store, err := Open(kind, t.TempDir())
		require.NoError(t, err, kind)
		t.Cleanup(func() {
			require.NoError(t, store.Close())
		})
		stores[kind] = store
	}
	return stores
}

func TestStorage_EmptyState(t *testing.T) {
	for kind, store := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			st, err := store.GetCurrentState(context.Background())
			require.NoError(t, err)
			assert.Empty(t, st.SaveDirs)
			assert.Empty(t, st.CurrentDir)
		})
	}
}

func TestStorage_RoundTrip(t *testing.T) {
	dirs := []platform.SaveDir{
		{Name: "Downloads", Path: "/home/u/Downloads"},
		{Name: "Photos", Path: "/home/u/Photos"},
	}
	for kind, store := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.UpdateDirectories(ctx, dirs))
			require.NoError(t, store.UpdateCurrentDirectory(ctx, "/home/u/Photos"))

			st, err := store.GetCurrentState(ctx)
			require.NoError(t, err)
			assert.Equal(t, dirs, st.SaveDirs)
			assert.Equal(t, "/home/u/Photos", st.CurrentDir)

			require.NoError(t, store.UpdateDirectories(ctx, dirs[:1]))
			require.NoError(t, store.UpdateCurrentDirectory(ctx, ""))
			st, err = store.GetCurrentState(ctx)
			require.NoError(t, err)
			assert.Equal(t, dirs[:1], st.SaveDirs)
			assert.Empty(t, st.CurrentDir)
		})
	}
}

func TestStorage_ConcurrentUpdates(t *testing.T) {
	for kind, store := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					assert.NoError(t, store.UpdateDirectories(ctx, []platform.SaveDir{{Name: "a", Path: "/a"}}))
				}()
				go func() {
					defer wg.Done()
					assert.NoError(t, store.UpdateCurrentDirectory(ctx, "/a"))
				}()
			}
			wg.Wait()

			st, err := store.GetCurrentState(ctx)
			require.NoError(t, err)
			assert.Equal(t, []platform.SaveDir{{Name: "a", Path: "/a"}}, st.SaveDirs)
			assert.Equal(t, "/a", st.CurrentDir)
		})
	}
}

func TestFileStore_CorruptFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultStateFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := OpenFileStore(path)
	require.NoError(t, err)
	st, err := store.GetCurrentState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, State{}, st)

	require.NoError(t, store.UpdateCurrentDirectory(context.Background(), "/x"))
	st, err = store.GetCurrentState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/x", st.CurrentDir)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultDBFileName)
	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.UpdateCurrentDirectory(context.Background(), "/kept"))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	st, err := reopened.GetCurrentState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/kept", st.CurrentDir)
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open("bolt", t.TempDir())
	assert.ErrorContains(t, err, `unknown store kind "bolt"`)
}
