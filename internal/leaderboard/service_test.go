package leaderboard

import (
	"context"
	"math"
	"testing"

	"github.com/annel0/arcade-hub/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *auth.MemoryUserRepo) {
	t.Helper()
	users := auth.NewMemoryUserRepo()
	return NewService(NewMemoryRepo(), users), users
}

// TestSubmitScoreValidation проверяет отклонение некорректных заявок до мутаций.
func TestSubmitScoreValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		game     string
		score    float64
		wantErr  error
	}{
		{"пустая игра", "alice", "", 10, ErrInvalidGame},
		{"игра из пробелов", "alice", "   ", 10, ErrInvalidGame},
		{"сентинел unknown", "alice", "unknown", 10, ErrInvalidGame},
		{"сентинел unknown game", "alice", "Unknown Game", 10, ErrInvalidGame},
		{"сентинел в верхнем регистре", "alice", "UNKNOWN", 10, ErrInvalidGame},
		{"пустой username", "", "pong", 10, ErrInvalidUsername},
		{"username из пробелов", "   ", "pong", 10, ErrInvalidUsername},
		{"NaN", "alice", "pong", math.NaN(), ErrInvalidScore},
		{"+Inf", "alice", "pong", math.Inf(1), ErrInvalidScore},
		{"отрицательный", "alice", "pong", -1, ErrInvalidScore},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			accepted, err := svc.SubmitScore(ctx, tc.username, tc.game, tc.score)
			assert.False(t, accepted)
			require.ErrorIs(t, err, tc.wantErr)
			assert.True(t, IsValidationError(err), "ошибка должна быть валидационной")
		})
	}

	// Отклонённые заявки не оставляют следов в хранилище
	entries, err := svc.Leaderboard(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, entries, "хранилище должно остаться пустым")
}

// TestSubmitScoreValidationOrder: невалидная игра важнее невалидного имени.
func TestSubmitScoreValidationOrder(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SubmitScore(context.Background(), "", "", math.NaN())
	require.ErrorIs(t, err, ErrInvalidGame)
}

// TestSubmitScoreMerge проверяет best-score merge для пары (username, game).
func TestSubmitScoreMerge(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Первый результат создаёт запись
	accepted, err := svc.SubmitScore(ctx, "alice", "pong", 100)
	require.NoError(t, err)
	assert.True(t, accepted)

	// Худший результат молча отбрасывается
	accepted, err = svc.SubmitScore(ctx, "alice", "pong", 90)
	require.NoError(t, err)
	assert.False(t, accepted, "не-улучшение должно быть отброшено без ошибки")

	// Равный результат — тоже не улучшение
	accepted, err = svc.SubmitScore(ctx, "alice", "pong", 100)
	require.NoError(t, err)
	assert.False(t, accepted)

	// Лучший результат обновляет запись на месте
	accepted, err = svc.SubmitScore(ctx, "alice", "pong", 150)
	require.NoError(t, err)
	assert.True(t, accepted)

	entries, err := svc.Leaderboard(ctx, "pong")
	require.NoError(t, err)
	require.Len(t, entries, 1, "на пару (username, game) — ровно одна запись")
	assert.Equal(t, "alice", entries[0].Username)
	assert.Equal(t, 150.0, entries[0].Score)
}

// TestSubmitScorePerGame: записи одной пары не пересекаются между играми.
func TestSubmitScorePerGame(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitScore(ctx, "alice", "pong", 100)
	require.NoError(t, err)
	_, err = svc.SubmitScore(ctx, "alice", "tetris", 40)
	require.NoError(t, err)

	all, err := svc.Leaderboard(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pong, err := svc.Leaderboard(ctx, "pong")
	require.NoError(t, err)
	require.Len(t, pong, 1)
	assert.Equal(t, 100.0, pong[0].Score)
}

// TestSubmitScoreUsernameCaseSensitive: имена сравниваются с учётом регистра.
func TestSubmitScoreUsernameCaseSensitive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitScore(ctx, "alice", "pong", 100)
	require.NoError(t, err)
	_, err = svc.SubmitScore(ctx, "Alice", "pong", 50)
	require.NoError(t, err)

	entries, err := svc.Leaderboard(ctx, "pong")
	require.NoError(t, err)
	assert.Len(t, entries, 2, "alice и Alice — разные игроки")
}

// TestLeaderboardOrdering: убывание очков, равные сохраняют порядок вставки.
func TestLeaderboardOrdering(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitScore(ctx, "alice", "pong", 100)
	require.NoError(t, err)
	_, err = svc.SubmitScore(ctx, "bob", "pong", 50)
	require.NoError(t, err)
	_, err = svc.SubmitScore(ctx, "carol", "pong", 100)
	require.NoError(t, err)

	entries, err := svc.Leaderboard(ctx, "pong")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	names := []string{entries[0].Username, entries[1].Username, entries[2].Username}
	assert.Equal(t, []string{"alice", "carol", "bob"}, names,
		"при равных очках alice раньше carol (порядок вставки)")
}

// TestSubmitScoreStats: gamesPlayed растёт только на принятых мутациях,
// highScore аккаунта — максимум по всем играм.
func TestSubmitScoreStats(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	hash, err := auth.HashPassword("secret")
	require.NoError(t, err)
	_, err = users.CreateUser("alice", hash, false)
	require.NoError(t, err)

	_, err = svc.SubmitScore(ctx, "alice", "pong", 100)
	require.NoError(t, err)
	_, err = svc.SubmitScore(ctx, "alice", "pong", 90) // отброшено
	require.NoError(t, err)
	_, err = svc.SubmitScore(ctx, "alice", "tetris", 40)
	require.NoError(t, err)

	user, err := users.GetUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, user.Stats.GamesPlayed, "отброшенный дубликат не считается")
	assert.Equal(t, 100.0, user.Stats.HighScore)
}

// TestSubmitScoreUnregisteredUser: результат без аккаунта — допустим.
func TestSubmitScoreUnregisteredUser(t *testing.T) {
	svc, _ := newTestService(t)

	accepted, err := svc.SubmitScore(context.Background(), "ghost", "pong", 10)
	require.NoError(t, err)
	assert.True(t, accepted)
}

// TestSubmitScoreTrimsInput: пробелы по краям не создают отдельных записей.
func TestSubmitScoreTrimsInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitScore(ctx, "alice", "pong", 100)
	require.NoError(t, err)
	accepted, err := svc.SubmitScore(ctx, "  alice  ", " pong ", 150)
	require.NoError(t, err)
	assert.True(t, accepted)

	entries, err := svc.Leaderboard(ctx, "pong")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 150.0, entries[0].Score)
}

type recordingInvalidator struct {
	games []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, game string) error {
	r.games = append(r.games, game)
	return nil
}

// TestSubmitScoreInvalidation: кеш инвалидируется только на принятых мутациях.
func TestSubmitScoreInvalidation(t *testing.T) {
	svc, _ := newTestService(t)
	inv := &recordingInvalidator{}
	svc.SetInvalidator(inv)
	ctx := context.Background()

	_, err := svc.SubmitScore(ctx, "alice", "pong", 100)
	require.NoError(t, err)
	_, err = svc.SubmitScore(ctx, "alice", "pong", 50) // отброшено
	require.NoError(t, err)

	assert.Equal(t, []string{"pong"}, inv.games)
}
