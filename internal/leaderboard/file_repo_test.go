package leaderboard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFileRepoEmptyLoad: отсутствующий файл — пустая коллекция, не ошибка.
func TestFileRepoEmptyLoad(t *testing.T) {
	repo, err := NewFileRepo(t.TempDir())
	require.NoError(t, err)

	entries, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestFileRepoRoundTrip: Replace/Load сохраняют записи и порядок вставки.
func TestFileRepoRoundTrip(t *testing.T) {
	repo, err := NewFileRepo(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	in := []Entry{
		{Username: "alice", Game: "pong", Score: 100, UpdatedAt: 1},
		{Username: "bob", Game: "pong", Score: 50, UpdatedAt: 2},
		{Username: "alice", Game: "tetris", Score: 40, UpdatedAt: 3},
	}
	require.NoError(t, repo.Replace(ctx, in))

	out, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out, "порядок вставки должен пережить перезапись файла")
}

// TestFileRepoReplaceOverwrites: Replace заменяет коллекцию целиком.
func TestFileRepoReplaceOverwrites(t *testing.T) {
	repo, err := NewFileRepo(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, []Entry{{Username: "alice", Game: "pong", Score: 1}}))
	require.NoError(t, repo.Replace(ctx, []Entry{{Username: "bob", Game: "pong", Score: 2}}))

	out, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "bob", out[0].Username)
}

// TestFileRepoNoTempLeftover: временный файл не должен оставаться после записи.
func TestFileRepoNoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepo(dir)
	require.NoError(t, err)

	require.NoError(t, repo.Replace(context.Background(), []Entry{{Username: "alice", Game: "pong", Score: 1}}))

	_, err = os.Stat(filepath.Join(dir, "leaderboard.json.tmp"))
	assert.True(t, os.IsNotExist(err), "временный файл должен быть переименован")
}

// TestFileRepoCancelledContext: отменённый контекст прерывает операции.
func TestFileRepoCancelledContext(t *testing.T) {
	repo, err := NewFileRepo(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, repo.Replace(ctx, nil), context.Canceled)
}
