package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultPlayerName используется, когда имя не задано или пустое.
const DefaultPlayerName = "Player"

// Profile — локальный профиль игрока: имя и последние подтверждённые
// сервером рекорды по играм. Хранится в JSON-файле, переживает рестарт.
type Profile struct {
	mu   sync.Mutex
	path string

	username  string
	confirmed map[string]float64 // игра → последний подтверждённый рекорд
}

type profileDoc struct {
	Username   string             `json:"username"`
	BestByGame map[string]float64 `json:"bestByGame"`
}

// LoadProfile читает профиль из файла. Отсутствующий файл — не ошибка:
// возвращается пустой профиль с именем по умолчанию.
func LoadProfile(path string) (*Profile, error) {
	p := &Profile{
		path:      path,
		username:  DefaultPlayerName,
		confirmed: make(map[string]float64),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, err
	}

	var doc profileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(doc.Username); name != "" {
		p.username = name
	}
	if doc.BestByGame != nil {
		p.confirmed = doc.BestByGame
	}
	return p, nil
}

// Username возвращает текущее имя игрока.
func (p *Profile) Username() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.username
}

// SetUsername меняет имя игрока и сохраняет профиль.
// Пустое имя после trim заменяется именем по умолчанию.
func (p *Profile) SetUsername(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultPlayerName
	}
	p.username = name
	return p.save()
}

// ConfirmedBest возвращает последний подтверждённый сервером рекорд.
func (p *Profile) ConfirmedBest(game string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.confirmed[game]
}

// RememberBest фиксирует подтверждённый сервером рекорд и сохраняет
// профиль. Меньшее значение не затирает большее.
func (p *Profile) RememberBest(game string, score float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if score <= p.confirmed[game] {
		return nil
	}
	p.confirmed[game] = score
	return p.save()
}

// save пишет профиль через временный файл, чтобы обрыв записи не
// оставил битый JSON. Вызывается под mu.
func (p *Profile) save() error {
	if p.path == "" {
		return nil
	}

	doc := profileDoc{Username: p.username, BestByGame: p.confirmed}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}
