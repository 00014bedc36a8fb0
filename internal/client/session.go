package client

import (
	"context"
	"sync"

	"github.com/annel0/arcade-hub/internal/logging"
)

// SubmitState — состояние последней отправки результата.
type SubmitState int

const (
	StateIdle SubmitState = iota
	StatePending
	StateConfirmed
	StateFailedNeedsRetry
)

func (s SubmitState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailedNeedsRetry:
		return "failed-needs-retry"
	}
	return "unknown"
}

// GameSession — сессия одной игры на клиенте. Держит локальную планку
// рекорда (gate): результат не хуже планки на сервер не уходит.
// Планка оптимистично поднимается до отправки; при сбое сети Reconcile
// откатывает её к последнему подтверждённому значению, иначе более
// низкий, но реальный рекорд никогда бы не был дослан.
type GameSession struct {
	mu sync.Mutex

	api     *APIClient
	profile *Profile
	game    string

	best      float64 // локальная планка текущей сессии, с нуля
	pending   float64 // результат, ожидающий подтверждения или ретрая
	confirmed float64 // последний подтверждённый сервером в этой сессии
	state     SubmitState
}

// NewGameSession создаёт сессию игры. Планка начинается с нуля:
// дедупликация устаревших результатов — забота сервера, клиентская
// планка отсекает только не-улучшения внутри сессии.
func NewGameSession(api *APIClient, profile *Profile, game string) *GameSession {
	return &GameSession{
		api:     api,
		profile: profile,
		game:    game,
		state:   StateIdle,
	}
}

// State возвращает текущее состояние отправки.
func (gs *GameSession) State() SubmitState {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.state
}

// Best возвращает локальную планку рекорда.
func (gs *GameSession) Best() float64 {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.best
}

// TrySubmit отправляет результат, если он строго выше локальной планки.
// Возвращает submitted=false без обращения к серверу, когда результат
// планку не бьёт. При сетевом сбое сессия переходит в
// StateFailedNeedsRetry и ждёт Retry или Reconcile.
func (gs *GameSession) TrySubmit(ctx context.Context, score float64) (bool, error) {
	gs.mu.Lock()
	if score <= gs.best {
		gs.mu.Unlock()
		return false, nil
	}

	// Оптимистично поднимаем планку: дубль той же игры не должен
	// породить второй запрос, пока первый в полёте.
	gs.best = score
	gs.pending = score
	gs.state = StatePending
	username := gs.profile.Username()
	game := gs.game
	gs.mu.Unlock()

	err := gs.api.SubmitScore(ctx, username, game, score)

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err != nil {
		gs.state = StateFailedNeedsRetry
		logging.Warn("результат %.0f (%s) не доставлен: %v", score, game, err)
		return true, err
	}

	gs.state = StateConfirmed
	gs.confirmed = score
	gs.pending = 0
	if err := gs.profile.RememberBest(game, score); err != nil {
		logging.Warn("не удалось сохранить профиль: %v", err)
	}
	return true, nil
}

// Retry повторяет неудавшуюся отправку. Вне StateFailedNeedsRetry — no-op.
func (gs *GameSession) Retry(ctx context.Context) error {
	gs.mu.Lock()
	if gs.state != StateFailedNeedsRetry {
		gs.mu.Unlock()
		return nil
	}
	score := gs.pending
	username := gs.profile.Username()
	game := gs.game
	gs.state = StatePending
	gs.mu.Unlock()

	err := gs.api.SubmitScore(ctx, username, game, score)

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err != nil {
		gs.state = StateFailedNeedsRetry
		return err
	}

	gs.state = StateConfirmed
	gs.confirmed = score
	gs.pending = 0
	if err := gs.profile.RememberBest(game, score); err != nil {
		logging.Warn("не удалось сохранить профиль: %v", err)
	}
	return nil
}

// Reconcile откатывает планку после сбоя к последнему подтверждённому
// сервером значению. Вне StateFailedNeedsRetry — no-op.
func (gs *GameSession) Reconcile() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.state != StateFailedNeedsRetry {
		return
	}
	gs.best = gs.confirmed
	gs.pending = 0
	gs.state = StateIdle
}

// ResetBest сбрасывает планку сессии (новая партия "с нуля").
// Подтверждённый рекорд в профиле не трогается.
func (gs *GameSession) ResetBest() {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.best = 0
	gs.pending = 0
	gs.state = StateIdle
}
