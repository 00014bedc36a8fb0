package leaderboard

import (
	"context"
	"sync"
)

// MemoryRepo реализует Repository в памяти.
// Используется в тестах и для локальной разработки без диска.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryRepo struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryRepo создает новый репозиторий таблицы рекордов в памяти.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Load возвращает копию всех записей в порядке вставки.
func (r *MemoryRepo) Load(ctx context.Context) ([]Entry, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

// Replace перезаписывает коллекцию целиком.
func (r *MemoryRepo) Replace(ctx context.Context, entries []Entry) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make([]Entry, len(entries))
	copy(r.entries, entries)
	return nil
}
