package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MariaConfig содержит настройки подключения к MariaDB
type MariaConfig struct {
	Host     string // например, localhost
	Port     int    // например, 3306
	Database string // например, arcadehub
	Username string // пользователь БД
	Password string // пароль БД
}

// MariaUserRepo реализует UserRepository для MariaDB
type MariaUserRepo struct {
	db *sql.DB
}

// NewMariaUserRepo создает новое подключение к MariaDB и возвращает репозиторий
func NewMariaUserRepo(cfg MariaConfig) (*MariaUserRepo, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 3306
	}
	if cfg.Database == "" {
		cfg.Database = "arcadehub"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть подключение к MariaDB: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	repo := &MariaUserRepo{db: db}

	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("не удалось создать таблицы: %w", err)
	}

	return repo, nil
}

// createTables создает необходимые таблицы в БД
func (m *MariaUserRepo) createTables() error {
	createUsersTable := `
	CREATE TABLE IF NOT EXISTS users (
		username VARCHAR(50) NOT NULL PRIMARY KEY,
		password_hash VARCHAR(255) NOT NULL,
		games_played INT NOT NULL DEFAULT 0,
		high_score DOUBLE NOT NULL DEFAULT 0,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_login TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin;`

	if _, err := m.db.Exec(createUsersTable); err != nil {
		return fmt.Errorf("не удалось создать таблицу users: %w", err)
	}

	return nil
}

// GetUserByUsername получает пользователя по точному имени
func (m *MariaUserRepo) GetUserByUsername(username string) (*User, error) {
	row := m.db.QueryRow(`
		SELECT username, password_hash, games_played, high_score, is_admin, created_at, last_login
		FROM users WHERE username = ?`, username)
	return scanMariaUser(row)
}

// CreateUser добавляет нового пользователя с нулевой статистикой
func (m *MariaUserRepo) CreateUser(username string, passwordHash string, isAdmin bool) (*User, error) {
	now := time.Now()
	_, err := m.db.Exec(`
		INSERT INTO users (username, password_hash, is_admin, created_at, last_login)
		VALUES (?, ?, ?, ?, ?)`,
		username, passwordHash, isAdmin, now, now)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		Stats:        Stats{},
		CreatedAt:    now,
		LastLogin:    now,
		IsAdmin:      isAdmin,
	}, nil
}

// ValidateCredentials проверяет учетные данные пользователя.
// Отсутствие пользователя и неверный пароль не различаются.
func (m *MariaUserRepo) ValidateCredentials(username, password string) (*User, error) {
	user, err := m.GetUserByUsername(username)
	if err != nil || !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if _, err := m.db.Exec(`UPDATE users SET last_login = ? WHERE username = ?`, now, username); err != nil {
		return nil, fmt.Errorf("ошибка обновления last_login: %w", err)
	}
	user.LastLogin = now
	return user, nil
}

// RecordResult обновляет агрегатную статистику одним UPDATE
func (m *MariaUserRepo) RecordResult(username string, score float64) error {
	res, err := m.db.Exec(`
		UPDATE users
		SET games_played = games_played + 1,
		    high_score = GREATEST(high_score, ?)
		WHERE username = ?`, score, username)
	if err != nil {
		return fmt.Errorf("ошибка обновления статистики: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsers возвращает все аккаунты
func (m *MariaUserRepo) ListUsers() ([]*User, error) {
	rows, err := m.db.Query(`
		SELECT username, password_hash, games_played, high_score, is_admin, created_at, last_login
		FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса пользователей: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanMariaUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Close закрывает подключение к БД
func (m *MariaUserRepo) Close() error {
	return m.db.Close()
}

// rowScanner объединяет *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMariaUser(row rowScanner) (*User, error) {
	var user User
	err := row.Scan(&user.Username, &user.PasswordHash,
		&user.Stats.GamesPlayed, &user.Stats.HighScore,
		&user.IsAdmin, &user.CreatedAt, &user.LastLogin)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения строки пользователя: %w", err)
	}
	return &user, nil
}

// isDuplicateKeyError проверяет ошибку MySQL 1062 (duplicate entry)
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
