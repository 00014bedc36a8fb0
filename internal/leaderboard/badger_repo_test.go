package leaderboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBadgerRepo(t *testing.T) *BadgerRepo {
	t.Helper()
	repo, err := NewBadgerRepo(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// TestBadgerRepoRoundTrip: записи и порядок вставки переживают Replace/Load.
func TestBadgerRepoRoundTrip(t *testing.T) {
	repo := newBadgerRepo(t)
	ctx := context.Background()

	entries, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	in := []Entry{
		{Username: "alice", Game: "pong", Score: 100, UpdatedAt: 1},
		{Username: "bob", Game: "pong", Score: 50, UpdatedAt: 2},
		{Username: "alice", Game: "tetris", Score: 40, UpdatedAt: 3},
	}
	require.NoError(t, repo.Replace(ctx, in))

	out, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// TestBadgerRepoUpsert: повторный Replace той же пары (username, game)
// обновляет запись на месте, не создавая дубликата.
func TestBadgerRepoUpsert(t *testing.T) {
	repo := newBadgerRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, []Entry{
		{Username: "alice", Game: "pong", Score: 100, UpdatedAt: 1},
	}))
	require.NoError(t, repo.Replace(ctx, []Entry{
		{Username: "alice", Game: "pong", Score: 150, UpdatedAt: 2},
	}))

	out, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 150.0, out[0].Score)
}
