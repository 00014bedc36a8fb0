package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/arcade-hub/internal/auth"
	"github.com/annel0/arcade-hub/internal/leaderboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Prometheus-метрики регистрируются в глобальном регистре, поэтому сервер
// создаётся один раз на весь тест, сценарии идут последовательными подтестами.
func TestRestServerE2E(t *testing.T) {
	userRepo := auth.NewMemoryUserRepo()
	scores := leaderboard.NewService(leaderboard.NewMemoryRepo(), userRepo)

	server := NewRestServer(Config{
		Port:     ":0",
		UserRepo: userRepo,
		Scores:   scores,
	})
	router := server.Router()

	do := func(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		for i := 0; i+1 < len(headers); i += 2 {
			req.Header.Set(headers[i], headers[i+1])
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("регистрация", func(t *testing.T) {
		w := do("POST", "/register", jsonBody{"username": "alice", "password": "secret"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "alice", resp["username"])
	})

	t.Run("регистрация дубликата", func(t *testing.T) {
		w := do("POST", "/register", jsonBody{"username": "alice", "password": "other"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Username already exists")
	})

	t.Run("регистрация без пароля", func(t *testing.T) {
		w := do("POST", "/register", jsonBody{"username": "bob"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Missing username or password")
	})

	t.Run("вход", func(t *testing.T) {
		w := do("POST", "/login", jsonBody{"username": "alice", "password": "secret"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("вход с неверным паролем", func(t *testing.T) {
		w := do("POST", "/login", jsonBody{"username": "alice", "password": "wrong"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid username or password")
	})

	t.Run("вход несуществующего аккаунта", func(t *testing.T) {
		// Тот же ответ, что и при неверном пароле: не раскрываем наличие аккаунта
		w := do("POST", "/login", jsonBody{"username": "ghost", "password": "secret"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid username or password")
	})

	t.Run("заявка без score", func(t *testing.T) {
		w := do("POST", "/leaderboard", jsonBody{"username": "alice", "game": "pong"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid score payload")
	})

	t.Run("заявка с неизвестной игрой", func(t *testing.T) {
		w := do("POST", "/leaderboard", jsonBody{"username": "alice", "game": "unknown", "score": 10})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("принятая заявка", func(t *testing.T) {
		w := do("POST", "/leaderboard", jsonBody{"username": "alice", "game": "pong", "score": 100})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"success":true`)
	})

	t.Run("отброшенная заявка — тоже успех", func(t *testing.T) {
		// Клиент не должен ретраить не-улучшение
		w := do("POST", "/leaderboard", jsonBody{"username": "alice", "game": "pong", "score": 90})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
	})

	t.Run("таблица рекордов", func(t *testing.T) {
		require.Equal(t, http.StatusOK, do("POST", "/leaderboard", jsonBody{"username": "bob", "game": "pong", "score": 50}).Code)
		require.Equal(t, http.StatusOK, do("POST", "/leaderboard", jsonBody{"username": "alice", "game": "tetris", "score": 70}).Code)

		w := do("GET", "/leaderboard?game=pong", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var entries []leaderboard.Entry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "alice", entries[0].Username)
		assert.Equal(t, 100.0, entries[0].Score)
		assert.Equal(t, "bob", entries[1].Username)

		// Без фильтра — все игры
		w = do("GET", "/leaderboard", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
		assert.Len(t, entries, 3)
	})

	t.Run("статистика аккаунта", func(t *testing.T) {
		user, err := userRepo.GetUserByUsername("alice")
		require.NoError(t, err)
		// pong 100 + tetris 70 приняты, pong 90 отброшен
		assert.Equal(t, 2, user.Stats.GamesPlayed)
		assert.Equal(t, 100.0, user.Stats.HighScore)
	})

	t.Run("health", func(t *testing.T) {
		w := do("GET", "/health", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	})

	t.Run("админ без токена", func(t *testing.T) {
		w := do("GET", "/api/admin/users", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("админ поверхность", func(t *testing.T) {
		hash, err := auth.HashPassword("AdminPass1")
		require.NoError(t, err)
		_, err = userRepo.CreateUser("admin", hash, true)
		require.NoError(t, err)

		w := do("POST", "/api/auth/login", jsonBody{"username": "admin", "password": "AdminPass1"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var loginResp LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
		require.NotEmpty(t, loginResp.Token)

		w = do("GET", "/api/admin/users", nil, "Authorization", "Bearer "+loginResp.Token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"username":"alice"`)
	})

	t.Run("админ с токеном игрока", func(t *testing.T) {
		user, err := userRepo.GetUserByUsername("alice")
		require.NoError(t, err)
		token, err := auth.GenerateJWT(user)
		require.NoError(t, err)

		w := do("GET", "/api/admin/users", nil, "Authorization", "Bearer "+token)
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("метрики", func(t *testing.T) {
		w := do("GET", "/metrics", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "arcade_api_score_submissions_total")
	})
}

// jsonBody — сокращение для JSON-тел в тестах.
type jsonBody = map[string]interface{}

