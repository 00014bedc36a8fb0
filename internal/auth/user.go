package auth

import "time"

// Stats holds per-account aggregate counters derived from score submissions.
type Stats struct {
	GamesPlayed int     `json:"gamesPlayed"` // accepted submissions total
	HighScore   float64 `json:"highScore"`   // best score ever, across all games
}

// User represents a player/administrator account.
// NOTE: This is the minimal structure required for the arcade hub accounts layer.
type User struct {
	Username     string    // Unique username (exact match, case preserved)
	PasswordHash string    // bcrypt hashed password (60 chars)
	Stats        Stats     // Aggregate stats, mutated by the score reconciler
	CreatedAt    time.Time // Account creation timestamp (server time)
	LastLogin    time.Time // Last successful login
	IsAdmin      bool      // Administrative privileges flag
}
