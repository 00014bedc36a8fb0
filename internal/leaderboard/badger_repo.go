package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

// BadgerRepo реализует Repository поверх встраиваемого BadgerDB.
// Каждая запись хранится под составным ключом (username, game) — это
// вариант с индексированным upsert: конкурентные писатели не теряют
// чужие обновления, в отличие от перезаписи файла целиком.
type BadgerRepo struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

var entryPrefix = []byte("entry:")

// badgerEntry — формат значения в BadgerDB. Seq сохраняет порядок вставки,
// нужный для стабильной сортировки при равных очках.
type badgerEntry struct {
	Entry
	Seq int `json:"seq"`
}

// NewBadgerRepo открывает (или создаёт) базу в dataPath/leaderboard.
func NewBadgerRepo(dataPath string) (*BadgerRepo, error) {
	dbPath := filepath.Join(dataPath, "leaderboard")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerRepo{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных.
func (r *BadgerRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}

	r.isReady = false
	return r.db.Close()
}

// Load загружает все записи и восстанавливает порядок вставки по Seq.
func (r *BadgerRepo) Load(ctx context.Context) ([]Entry, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var records []badgerEntry
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(entryPrefix); it.ValidForPrefix(entryPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec badgerEntry
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("ошибка десериализации записи: %w", err)
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })

	entries := make([]Entry, len(records))
	for i, rec := range records {
		entries[i] = rec.Entry
	}
	return entries, nil
}

// Replace выполняет upsert каждой записи под её составным ключом.
// Записи никогда не удаляются обычными операциями, поэтому полного
// диффа со старым состоянием не требуется.
func (r *BadgerRepo) Replace(ctx context.Context, entries []Entry) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()

	for i, e := range entries {
		rec := badgerEntry{Entry: e, Seq: i}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("ошибка сериализации записи %s/%s: %w", e.Username, e.Game, err)
		}
		key := append(append([]byte{}, entryPrefix...), []byte(e.Key())...)
		if err := wb.Set(key, data); err != nil {
			return fmt.Errorf("ошибка записи в BadgerDB: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка сохранения батча: %w", err)
	}
	return nil
}
