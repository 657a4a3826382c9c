package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentbus/checkpoint"
	"github.com/hupe1980/agentbus/core"
)

func testStore(t *testing.T, optFns ...func(o *Options)) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, optFns...)
}

func sample(id string, capturedAt time.Time) *checkpoint.Checkpoint {
	start := core.NewEvent("external", "start", nil)
	start.Seq = 1
	return &checkpoint.Checkpoint{
		ID:         id,
		Version:    checkpoint.FormatVersion,
		CapturedAt: capturedAt,
		NextSeq:    2,
		Cursor:     1,
		Completed:  []core.Event{start},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	cp := sample("cp-1", time.Now().UTC())
	require.NoError(t, store.Save(ctx, cp))

	got, err := store.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, cp.ID, got.ID)
	assert.Equal(t, cp.NextSeq, got.NextSeq)
	require.Len(t, got.Completed, 1)
	assert.Equal(t, "start", got.Completed[0].Kind)
}

func TestStore_LoadMissing(t *testing.T) {
	store := testStore(t)
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestStore_LatestAndList(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	base := time.Now().UTC()

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	require.NoError(t, store.Save(ctx, sample("cp-old", base.Add(-2*time.Minute))))
	require.NoError(t, store.Save(ctx, sample("cp-new", base)))
	require.NoError(t, store.Save(ctx, sample("cp-mid", base.Add(-time.Minute))))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cp-new", latest.ID)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cp-old", "cp-mid", "cp-new"}, ids)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	require.NoError(t, store.Save(ctx, sample("cp-1", time.Now().UTC())))
	require.NoError(t, store.Delete(ctx, "cp-1"))

	_, err := store.Load(ctx, "cp-1")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.NoError(t, store.Delete(ctx, "cp-1"), "double delete is not an error")
}

func TestStore_SaveValidates(t *testing.T) {
	store := testStore(t)
	bad := sample("cp-1", time.Now().UTC())
	bad.Version = 99
	assert.ErrorIs(t, store.Save(context.Background(), bad), checkpoint.ErrInvalidCheckpoint)
}

func TestStore_KeyPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a := New(client, func(o *Options) { o.KeyPrefix = "run:a" })
	b := New(client, func(o *Options) { o.KeyPrefix = "run:b" })

	require.NoError(t, a.Save(ctx, sample("cp-1", time.Now().UTC())))

	_, err := b.Load(ctx, "cp-1")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	ids, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
