package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer поднимает httptest-сервер, принимающий или отклоняющий
// отправки результатов по флагу.
func fakeServer(t *testing.T, accept *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if accept.Load() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Internal server error"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestSession(t *testing.T, accept *atomic.Bool) (*GameSession, *Profile) {
	t.Helper()
	srv := fakeServer(t, accept)
	profile, err := LoadProfile(filepath.Join(t.TempDir(), "profile.json"))
	require.NoError(t, err)
	require.NoError(t, profile.SetUsername("alice"))
	return NewGameSession(NewAPIClient(srv.URL), profile, "pong"), profile
}

// TestSessionGate: результат не выше планки на сервер не уходит.
func TestSessionGate(t *testing.T) {
	var accept atomic.Bool
	accept.Store(true)
	session, _ := newTestSession(t, &accept)
	ctx := context.Background()

	submitted, err := session.TrySubmit(ctx, 100)
	require.NoError(t, err)
	assert.True(t, submitted)
	assert.Equal(t, StateConfirmed, session.State())

	// Хуже планки — без обращения к серверу
	submitted, err = session.TrySubmit(ctx, 90)
	require.NoError(t, err)
	assert.False(t, submitted)

	// Равный — тоже не улучшение
	submitted, err = session.TrySubmit(ctx, 100)
	require.NoError(t, err)
	assert.False(t, submitted)

	// Лучше — уходит
	submitted, err = session.TrySubmit(ctx, 150)
	require.NoError(t, err)
	assert.True(t, submitted)
	assert.Equal(t, 150.0, session.Best())
}

// TestSessionFailureAndReconcile: сбой переводит в FailedNeedsRetry,
// Reconcile откатывает планку к последнему подтверждённому значению.
func TestSessionFailureAndReconcile(t *testing.T) {
	var accept atomic.Bool
	accept.Store(true)
	session, _ := newTestSession(t, &accept)
	ctx := context.Background()

	_, err := session.TrySubmit(ctx, 100)
	require.NoError(t, err)

	// Сервер падает, планка оптимистично поднята до 150
	accept.Store(false)
	submitted, err := session.TrySubmit(ctx, 150)
	assert.True(t, submitted)
	require.Error(t, err)
	assert.Equal(t, StateFailedNeedsRetry, session.State())
	assert.Equal(t, 150.0, session.Best())

	// Откат возвращает планку к подтверждённым 100: иначе результат 120
	// никогда не был бы дослан
	session.Reconcile()
	assert.Equal(t, StateIdle, session.State())
	assert.Equal(t, 100.0, session.Best())

	accept.Store(true)
	submitted, err = session.TrySubmit(ctx, 120)
	require.NoError(t, err)
	assert.True(t, submitted)
}

// TestSessionRetry: Retry дошлёт зависший результат без нового TrySubmit.
func TestSessionRetry(t *testing.T) {
	var accept atomic.Bool
	accept.Store(false)
	session, profile := newTestSession(t, &accept)
	ctx := context.Background()

	_, err := session.TrySubmit(ctx, 100)
	require.Error(t, err)
	assert.Equal(t, StateFailedNeedsRetry, session.State())

	// Ретрай при живом сервере
	accept.Store(true)
	require.NoError(t, session.Retry(ctx))
	assert.Equal(t, StateConfirmed, session.State())
	assert.Equal(t, 100.0, profile.ConfirmedBest("pong"))

	// Вне FailedNeedsRetry ретрай — no-op
	require.NoError(t, session.Retry(ctx))
}

// TestSessionResetBest: новая партия начинается с нулевой планки.
func TestSessionResetBest(t *testing.T) {
	var accept atomic.Bool
	accept.Store(true)
	session, _ := newTestSession(t, &accept)
	ctx := context.Background()

	_, err := session.TrySubmit(ctx, 100)
	require.NoError(t, err)

	session.ResetBest()
	assert.Equal(t, 0.0, session.Best())
	assert.Equal(t, StateIdle, session.State())

	// После сброса и худший результат уходит на сервер (дедупликация — его забота)
	submitted, err := session.TrySubmit(ctx, 50)
	require.NoError(t, err)
	assert.True(t, submitted)
}

// TestProfilePersistence: имя и подтверждённые рекорды переживают перезагрузку.
func TestProfilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")

	profile, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultPlayerName, profile.Username())

	require.NoError(t, profile.SetUsername("alice"))
	require.NoError(t, profile.RememberBest("pong", 100))
	require.NoError(t, profile.RememberBest("pong", 40)) // меньшее не затирает

	reloaded, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", reloaded.Username())
	assert.Equal(t, 100.0, reloaded.ConfirmedBest("pong"))
	assert.Equal(t, 0.0, reloaded.ConfirmedBest("tetris"))
}

// TestProfileEmptyUsername: пустое имя заменяется именем по умолчанию.
func TestProfileEmptyUsername(t *testing.T) {
	profile, err := LoadProfile(filepath.Join(t.TempDir(), "profile.json"))
	require.NoError(t, err)

	require.NoError(t, profile.SetUsername("   "))
	assert.Equal(t, DefaultPlayerName, profile.Username())
}
