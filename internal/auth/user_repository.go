package auth

import "errors"

// UserRepository defines operations for account persistence and retrieval.
// The canonical backend is a single JSON file rewritten per mutation; this
// interface allows swapping to MariaDB/MongoDB without touching the rest of
// the code.
type UserRepository interface {
	// GetUserByUsername returns a user by username (exact match). If the user
	// is not found, (nil, ErrUserNotFound) should be returned.
	GetUserByUsername(username string) (*User, error)

	// CreateUser creates a new user with zeroed stats and returns the stored
	// user instance. Caller is expected to pass a bcrypt-hashed password.
	// Implementations must enforce unique usernames and return ErrUserExists on
	// conflict.
	CreateUser(username string, passwordHash string, isAdmin bool) (*User, error)

	// ValidateCredentials validates username and password, returns the user if
	// valid. Absent user and wrong password are both ErrInvalidCredentials —
	// callers must not be able to probe for account existence.
	ValidateCredentials(username, password string) (*User, error)

	// RecordResult applies the stats side effect of an accepted score
	// submission: gamesPlayed is incremented, highScore raised to score if
	// score is greater. Unknown username returns ErrUserNotFound.
	RecordResult(username string, score float64) error

	// ListUsers returns all accounts (admin surface).
	ListUsers() ([]*User, error)
}

// Domain-level errors returned by the repository.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
