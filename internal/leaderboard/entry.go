package leaderboard

// Entry представляет запись таблицы рекордов: лучший результат
// пары (username, game). Инвариант хранилища — не более одной записи
// на пару, score никогда не уменьшается.
type Entry struct {
	Username  string  `json:"username"`
	Game      string  `json:"game"`
	Score     float64 `json:"score"`
	UpdatedAt int64   `json:"updatedAt,omitempty"` // unix-время последнего улучшения
}

// Key возвращает составной ключ записи.
func (e Entry) Key() string {
	return e.Username + "\x00" + e.Game
}
