package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentbus/checkpoint"
	"github.com/hupe1980/agentbus/core"
)

// testStore connects to the database named by AGENTBUS_POSTGRES_DSN. Tests are
// skipped when the variable is unset so the suite stays runnable without a
// local Postgres.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("AGENTBUS_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AGENTBUS_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	table := fmt.Sprintf("agentbus_checkpoints_test_%d", time.Now().UnixNano())
	store := New(pool, func(o *Options) { o.Table = table })
	require.NoError(t, store.EnsureSchema(ctx))
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	})
	return store
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

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	cp := sample("cp-1", time.Now().UTC())
	require.NoError(t, store.Save(ctx, cp))

	got, err := store.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, cp.ID, got.ID)
	assert.Equal(t, cp.NextSeq, got.NextSeq)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestStore_SaveUpserts(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	cp := sample("cp-1", time.Now().UTC())
	require.NoError(t, store.Save(ctx, cp))

	cp.NextSeq = 9
	cp.Cursor = 8
	require.NoError(t, store.Save(ctx, cp))

	got, err := store.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.NextSeq)
}

func TestStore_LatestListDelete(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	base := time.Now().UTC()

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	require.NoError(t, store.Save(ctx, sample("cp-old", base.Add(-2*time.Minute))))
	require.NoError(t, store.Save(ctx, sample("cp-new", base)))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cp-new", latest.ID)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cp-old", "cp-new"}, ids)

	require.NoError(t, store.Delete(ctx, "cp-old"))
	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cp-new"}, ids)

	assert.NoError(t, store.Delete(ctx, "cp-old"), "double delete is not an error")
}
