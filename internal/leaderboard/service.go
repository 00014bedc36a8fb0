package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/annel0/arcade-hub/internal/auth"
	"github.com/annel0/arcade-hub/internal/logging"
)

// Ошибки валидации заявки на результат. Отклоняются до любой мутации.
var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidGame     = errors.New("invalid or unknown game")
	ErrInvalidScore    = errors.New("invalid score")
)

// IsValidationError сообщает, относится ли ошибка к отклонённой заявке
// (4xx для вызывающего), а не к сбою хранилища.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUsername) ||
		errors.Is(err, ErrInvalidGame) ||
		errors.Is(err, ErrInvalidScore)
}

// Invalidator уведомляет внешний кеш об изменении таблицы рекордов.
type Invalidator interface {
	Invalidate(ctx context.Context, game string) error
}

// Service — согласователь результатов: проверяет заявку, выполняет
// best-score merge в хранилище и обновляет агрегатную статистику аккаунта.
type Service struct {
	repo        Repository
	users       auth.UserRepository
	invalidator Invalidator // может быть nil
}

// NewService создаёт согласователь поверх хранилища записей и аккаунтов.
func NewService(repo Repository, users auth.UserRepository) *Service {
	return &Service{repo: repo, users: users}
}

// SetInvalidator подключает уведомление кеша (опционально).
func (s *Service) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// isUnknownGame проверяет сентинел "unknown"/"unknown game" без учёта регистра.
func isUnknownGame(game string) bool {
	return strings.EqualFold(game, "unknown") || strings.EqualFold(game, "unknown game")
}

// SubmitScore проверяет заявку и применяет best-score merge.
//
// Возвращает accepted=true, если хранилище изменилось (новая запись или
// улучшение). Заявка с не лучшим результатом — не ошибка: accepted=false,
// err=nil, состояние не меняется (идемпотентность повторной отправки).
//
// Политика статистики: gamesPlayed увеличивается на каждую принятую
// мутацию, не на отброшенные дубликаты. highScore аккаунта — максимум
// по всем играм.
func (s *Service) SubmitScore(ctx context.Context, username, game string, score float64) (accepted bool, err error) {
	username = strings.TrimSpace(username)
	game = strings.TrimSpace(game)

	if game == "" || isUnknownGame(game) {
		return false, fmt.Errorf("%w: %q", ErrInvalidGame, game)
	}
	if username == "" {
		return false, ErrInvalidUsername
	}
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return false, fmt.Errorf("%w: %v", ErrInvalidScore, score)
	}

	entries, err := s.repo.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("загрузка таблицы рекордов: %w", err)
	}

	// Ищем запись пары (username, game) — строгое равенство после trim.
	idx := -1
	for i := range entries {
		if entries[i].Username == username && entries[i].Game == game {
			idx = i
			break
		}
	}

	now := time.Now().Unix()
	switch {
	case idx < 0:
		entries = append(entries, Entry{Username: username, Game: game, Score: score, UpdatedAt: now})
	case score > entries[idx].Score:
		entries[idx].Score = score
		entries[idx].UpdatedAt = now
	default:
		// Не улучшение: молча отбрасываем, состояние не трогаем.
		return false, nil
	}

	if err := s.repo.Replace(ctx, entries); err != nil {
		return false, fmt.Errorf("сохранение таблицы рекордов: %w", err)
	}

	// Побочный эффект: агрегатная статистика аккаунта. Незарегистрированный
	// username в таблице рекордов допустим — статистику просто пропускаем.
	if err := s.users.RecordResult(username, score); err != nil && !errors.Is(err, auth.ErrUserNotFound) {
		logging.Warn("не удалось обновить статистику %s: %v", username, err)
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, game); err != nil {
			logging.Warn("инвалидация кеша для %s не удалась: %v", game, err)
		}
	}

	return true, nil
}

// Leaderboard возвращает записи, отсортированные по убыванию очков.
// Равные очки сохраняют порядок вставки (стабильная сортировка).
// Непустой game фильтрует по точному совпадению названия игры.
func (s *Service) Leaderboard(ctx context.Context, game string) ([]Entry, error) {
	entries, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка таблицы рекордов: %w", err)
	}

	game = strings.TrimSpace(game)
	if game != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Game == game {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries, nil
}
