package auth

import (
	"strings"
	"sync"
	"time"
)

// MemoryUserRepo is a threadsafe in-memory storage useful for tests &
// single-instance development servers. Data is lost on restart.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]*User // key = exact username
	order []string         // insertion order for ListUsers
}

// NewMemoryUserRepo returns an empty repository.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users: make(map[string]*User),
	}
}

// GetUserByUsername retrieves a user by exact username.
func (r *MemoryUserRepo) GetUserByUsername(username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// CreateUser inserts a new user if the username is not present.
func (r *MemoryUserRepo) CreateUser(username string, passwordHash string, isAdmin bool) (*User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrInvalidCredentials
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[username]; exists {
		return nil, ErrUserExists
	}

	user := &User{
		Username:     username,
		PasswordHash: passwordHash,
		Stats:        Stats{},
		CreatedAt:    time.Now(),
		LastLogin:    time.Now(),
		IsAdmin:      isAdmin,
	}
	r.users[username] = user
	r.order = append(r.order, username)
	return user, nil
}

// ValidateCredentials checks the password against the stored bcrypt hash.
func (r *MemoryUserRepo) ValidateCredentials(username, password string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok || !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	user.LastLogin = time.Now()
	cp := *user
	return &cp, nil
}

// RecordResult bumps gamesPlayed and raises highScore for an accepted score.
func (r *MemoryUserRepo) RecordResult(username string, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return ErrUserNotFound
	}
	user.Stats.GamesPlayed++
	if score > user.Stats.HighScore {
		user.Stats.HighScore = score
	}
	return nil
}

// ListUsers returns all accounts in insertion order.
func (r *MemoryUserRepo) ListUsers() ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*User, 0, len(r.order))
	for _, name := range r.order {
		cp := *r.users[name]
		out = append(out, &cp)
	}
	return out, nil
}
