package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileUserRepo реализует UserRepository поверх одного JSON-файла.
// Каждая операция выполняет цикл load -> mutate -> save, файл
// перезаписывается целиком. Атомарность обеспечивается записью во
// временный файл с последующим rename.
type FileUserRepo struct {
	mu   sync.Mutex
	path string
}

// fileUserRecord формат записи аккаунта на диске.
type fileUserRecord struct {
	PasswordHash string    `json:"password"`
	Stats        Stats     `json:"stats"`
	CreatedAt    time.Time `json:"createdAt"`
	LastLogin    time.Time `json:"lastLogin"`
	IsAdmin      bool      `json:"isAdmin,omitempty"`
}

// fileUserDoc весь документ коллекции: username -> запись.
// Порядок вставки хранится отдельно, JSON-карта его не сохраняет.
type fileUserDoc struct {
	Users map[string]fileUserRecord `json:"users"`
	Order []string                  `json:"order"`
}

// NewFileUserRepo создаёт репозиторий с файлом users.json в dataDir.
func NewFileUserRepo(dataDir string) (*FileUserRepo, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", dataDir, err)
	}
	return &FileUserRepo{path: filepath.Join(dataDir, "users.json")}, nil
}

// load читает коллекцию целиком. Отсутствие файла — не ошибка, а пустая коллекция.
func (r *FileUserRepo) load() (*fileUserDoc, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return &fileUserDoc{Users: make(map[string]fileUserRecord)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", r.path, err)
	}

	var doc fileUserDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ошибка десериализации %s: %w", r.path, err)
	}
	if doc.Users == nil {
		doc.Users = make(map[string]fileUserRecord)
	}
	return &doc, nil
}

// save перезаписывает коллекцию атомарно (temp + rename).
func (r *FileUserRepo) save(doc *fileUserDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации аккаунтов: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("ошибка переименования %s: %w", tmp, err)
	}
	return nil
}

func (doc *fileUserDoc) toUser(username string, rec fileUserRecord) *User {
	return &User{
		Username:     username,
		PasswordHash: rec.PasswordHash,
		Stats:        rec.Stats,
		CreatedAt:    rec.CreatedAt,
		LastLogin:    rec.LastLogin,
		IsAdmin:      rec.IsAdmin,
	}
}

// GetUserByUsername возвращает аккаунт по точному имени.
func (r *FileUserRepo) GetUserByUsername(username string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	rec, ok := doc.Users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return doc.toUser(username, rec), nil
}

// CreateUser добавляет новый аккаунт с нулевой статистикой.
func (r *FileUserRepo) CreateUser(username string, passwordHash string, isAdmin bool) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	if _, exists := doc.Users[username]; exists {
		return nil, ErrUserExists
	}

	rec := fileUserRecord{
		PasswordHash: passwordHash,
		Stats:        Stats{},
		CreatedAt:    time.Now(),
		LastLogin:    time.Now(),
		IsAdmin:      isAdmin,
	}
	doc.Users[username] = rec
	doc.Order = append(doc.Order, username)

	if err := r.save(doc); err != nil {
		return nil, err
	}
	return doc.toUser(username, rec), nil
}

// ValidateCredentials сверяет пароль с bcrypt-хешем.
// Неизвестный пользователь и неверный пароль неразличимы для вызывающего.
func (r *FileUserRepo) ValidateCredentials(username, password string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	rec, ok := doc.Users[username]
	if !ok || !CheckPassword(rec.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	rec.LastLogin = time.Now()
	doc.Users[username] = rec
	if err := r.save(doc); err != nil {
		return nil, err
	}
	return doc.toUser(username, rec), nil
}

// RecordResult обновляет агрегатную статистику после принятого результата.
func (r *FileUserRepo) RecordResult(username string, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	rec, ok := doc.Users[username]
	if !ok {
		return ErrUserNotFound
	}

	rec.Stats.GamesPlayed++
	if score > rec.Stats.HighScore {
		rec.Stats.HighScore = score
	}
	doc.Users[username] = rec

	return r.save(doc)
}

// ListUsers возвращает все аккаунты в порядке регистрации.
func (r *FileUserRepo) ListUsers() ([]*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*User, 0, len(doc.Order))
	for _, name := range doc.Order {
		if rec, ok := doc.Users[name]; ok {
			out = append(out, doc.toUser(name, rec))
		}
	}
	return out, nil
}
