package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileRepo реализует Repository поверх одного JSON-файла с массивом записей.
// Каноническое хранилище: каждый Replace перезаписывает файл целиком.
// Атомарность для читателей обеспечивается записью во временный файл
// с последующим rename.
type FileRepo struct {
	mu   sync.RWMutex
	path string
}

// NewFileRepo создаёт репозиторий с файлом leaderboard.json в dataDir.
func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", dataDir, err)
	}
	return &FileRepo{path: filepath.Join(dataDir, "leaderboard.json")}, nil
}

// Load читает коллекцию. Отсутствие файла — пустая коллекция, не ошибка.
func (r *FileRepo) Load(ctx context.Context) ([]Entry, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", r.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("ошибка десериализации %s: %w", r.path, err)
	}
	return entries, nil
}

// Replace атомарно перезаписывает файл коллекции (temp + rename).
func (r *FileRepo) Replace(ctx context.Context, entries []Entry) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации таблицы рекордов: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("ошибка переименования %s: %w", tmp, err)
	}
	return nil
}
