package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantwatch/internal/config"
	"plantwatch/internal/types"
)

func storeConfig(driver string) config.StoreConfig {
	return config.StoreConfig{Driver: driver, Timeout: time.Second}
}

func newBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenInMemoryBadgerStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStore_EmptyStore(t *testing.T) {
	store := newBadgerStore(t)
	ctx := context.Background()

	history, err := store.History(ctx)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestBadgerStore_HistoryOrderedRegardlessOfInsertOrder(t *testing.T) {
	store := newBadgerStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inserts := []types.Reading{
		{ID: "c", Temperature: 22, Humidity: 52, Timestamp: base.Add(2 * time.Minute)},
		{ID: "a", Temperature: 20, Humidity: 50, Timestamp: base},
		{ID: "b", Temperature: 21, Humidity: 51, Timestamp: base.Add(time.Minute)},
		{ID: "a2", Temperature: 20.5, Humidity: 50.5, Timestamp: base},
	}
	for _, r := range inserts {
		require.NoError(t, store.Insert(ctx, r))
	}
	require.NoError(t, store.Flush(ctx))

	history, err := store.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 4)

	ids := make([]string, len(history))
	for i, r := range history {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"a", "a2", "b", "c"}, ids)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].Before(history[i]))
	}

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "c", latest.ID)
	assert.Equal(t, 22.0, latest.Temperature)
}

func TestBadgerStore_PreservesValuesAndUTC(t *testing.T) {
	store := newBadgerStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 13, 30, 15, 123456789, time.FixedZone("CET", 3600))
	require.NoError(t, store.Insert(ctx, types.Reading{ID: "x", Temperature: -3.25, Humidity: 140, Timestamp: ts}))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, -3.25, latest.Temperature)
	assert.Equal(t, 140.0, latest.Humidity)
	assert.True(t, latest.Timestamp.Equal(ts))
	assert.Equal(t, time.UTC, latest.Timestamp.Location())
}

func TestBadgerStore_CancelledInsert(t *testing.T) {
	store := newBadgerStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Insert(ctx, types.Reading{ID: "x", Timestamp: time.Now()})
	assert.True(t, types.HasCode(err, types.ErrCodeInternalPersistence))

	history, err := store.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBadgerStore_PingAfterClose(t *testing.T) {
	store, err := OpenInMemoryBadgerStore()
	require.NoError(t, err)

	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), storeConfig("sqlite"), nil)
	assert.Error(t, err)
}

func TestOpen_Badger(t *testing.T) {
	cfg := storeConfig("badger")
	cfg.BadgerPath = t.TempDir()

	store, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Insert(context.Background(), types.Reading{ID: "a", Timestamp: time.Now()}))
	latest, err := store.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "a", latest.ID)
}

func TestBadgerStore_FlushInMemory(t *testing.T) {
	store, err := OpenInMemoryBadgerStore()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, types.Reading{ID: "a", Temperature: 23.5, Humidity: 61.2, Timestamp: time.Now()}))
	assert.NotPanics(t, func() {
		require.NoError(t, store.Flush(ctx))
	})

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "a", latest.ID)

	closed := make(chan error, 1)
	go func() { closed <- store.Close() }()
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Close blocked after Flush")
	}
}

func TestBadgerStore_FlushOnDisk(t *testing.T) {
	store, err := OpenBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, types.Reading{ID: "a", Timestamp: time.Now()}))
	require.NoError(t, store.Flush(ctx))

	history, err := store.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
