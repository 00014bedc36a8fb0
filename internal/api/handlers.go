package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/annel0/arcade-hub/internal/auth"
	"github.com/annel0/arcade-hub/internal/cache"
	"github.com/annel0/arcade-hub/internal/leaderboard"
	"github.com/annel0/arcade-hub/internal/logging"
	"github.com/gin-gonic/gin"
)

// CredentialsRequest — тело /register и /login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SubmitScoreRequest — тело POST /leaderboard.
// Score — указатель: отсутствие поля отличается от нуля.
type SubmitScoreRequest struct {
	Username string   `json:"username"`
	Score    *float64 `json:"score"`
	Game     string   `json:"game"`
}

// GenericResponse — единый формат success/message ответов.
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// UserInfo — представление аккаунта для административной поверхности.
// Хеш пароля наружу не отдаётся.
type UserInfo struct {
	Username    string  `json:"username"`
	GamesPlayed int     `json:"gamesPlayed"`
	HighScore   float64 `json:"highScore"`
	CreatedAt   string  `json:"createdAt"`
	LastLogin   string  `json:"lastLogin"`
	IsAdmin     bool    `json:"isAdmin"`
}

// handleRegister обрабатывает POST /register.
func (rs *RestServer) handleRegister(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing username or password"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing username or password"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logging.Error("ошибка хеширования пароля: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if _, err := rs.userRepo.CreateUser(req.Username, hash, false); err != nil {
		if err == auth.ErrUserExists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
			return
		}
		logging.Error("ошибка создания аккаунта %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	logging.Info("🆕 Зарегистрирован: %s", req.Username)
	c.JSON(http.StatusOK, gin.H{"success": true, "username": req.Username})
}

// handleLogin обрабатывает POST /login.
// Отсутствие аккаунта и неверный пароль дают одинаковый ответ.
func (rs *RestServer) handleLogin(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	user, err := rs.userRepo.ValidateCredentials(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	logging.Info("✅ Успешный вход: %s", user.Username)
	c.JSON(http.StatusOK, gin.H{"success": true, "username": user.Username})
}

// handleGetLeaderboard обрабатывает GET /leaderboard[?game=].
// Ответ — массив записей, отсортированный по убыванию очков.
func (rs *RestServer) handleGetLeaderboard(c *gin.Context) {
	game := c.Query("game")

	if rs.lbCache != nil {
		if data, err := rs.lbCache.Get(c.Request.Context(), game); err == nil {
			c.Data(http.StatusOK, "application/json", data)
			return
		} else if err != cache.ErrCacheMiss {
			logging.Warn("кеш таблицы рекордов недоступен: %v", err)
		}
	}

	entries, err := rs.scores.Leaderboard(c.Request.Context(), game)
	if err != nil {
		logging.Error("ошибка чтения таблицы рекордов: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if rs.lbCache != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := rs.lbCache.Set(c.Request.Context(), game, data); err != nil {
				logging.Warn("не удалось обновить кеш: %v", err)
			}
		}
	}

	c.JSON(http.StatusOK, entries)
}

// handleSubmitScore обрабатывает POST /leaderboard.
// Не-улучшение — тоже успех (no-op): клиент не должен ретраить его.
func (rs *RestServer) handleSubmitScore(c *gin.Context) {
	var req SubmitScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Score == nil {
		rs.promMw.CountSubmission("rejected")
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "invalid score payload"})
		return
	}

	accepted, err := rs.scores.SubmitScore(c.Request.Context(), req.Username, req.Game, *req.Score)
	if err != nil {
		if leaderboard.IsValidationError(err) {
			rs.promMw.CountSubmission("rejected")
			c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
			return
		}
		logging.Error("ошибка сохранения результата %s/%s: %v", req.Username, req.Game, err)
		rs.promMw.CountSubmission("failed")
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Internal server error"})
		return
	}

	if accepted {
		rs.promMw.CountSubmission("accepted")
		logging.Info("🏆 Новый рекорд: %s набрал %.0f в %s", req.Username, *req.Score, req.Game)
	} else {
		rs.promMw.CountSubmission("discarded")
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true})
}

// LoginRequest представляет запрос на вход администратора.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse представляет ответ на вход администратора.
type LoginResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token,omitempty"`
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
}

// handleAdminLogin обрабатывает POST /api/auth/login и выдаёт JWT.
func (rs *RestServer) handleAdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, LoginResponse{Success: false, Message: "Неверный формат запроса"})
		return
	}

	user, err := rs.userRepo.ValidateCredentials(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, LoginResponse{Success: false, Message: "Неверные учетные данные"})
		return
	}

	token, err := auth.GenerateJWT(user)
	if err != nil {
		logging.Error("ошибка генерации JWT для %s: %v", user.Username, err)
		c.JSON(http.StatusInternalServerError, LoginResponse{Success: false, Message: "Внутренняя ошибка"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success:  true,
		Token:    token,
		Message:  "Вход выполнен",
		Username: user.Username,
	})
}

// handleGetUsers обрабатывает GET /api/admin/users.
func (rs *RestServer) handleGetUsers(c *gin.Context) {
	users, err := rs.userRepo.ListUsers()
	if err != nil {
		logging.Error("ошибка получения списка аккаунтов: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Внутренняя ошибка"})
		return
	}

	out := make([]UserInfo, 0, len(users))
	for _, u := range users {
		out = append(out, UserInfo{
			Username:    u.Username,
			GamesPlayed: u.Stats.GamesPlayed,
			HighScore:   u.Stats.HighScore,
			CreatedAt:   u.CreatedAt.Format("2006-01-02 15:04:05"),
			LastLogin:   u.LastLogin.Format("2006-01-02 15:04:05"),
			IsAdmin:     u.IsAdmin,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "count": len(out)})
}

// handleServerInfo обрабатывает GET /api/admin/server.
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, err := rs.metrics.GetCPUUsage()
	if err != nil {
		logging.Debug("метрика CPU недоступна: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   memoryMB,
		"cpu_percent": cpuPercent,
	})
}

// handleCacheMetrics обрабатывает GET /api/admin/cache.
func (rs *RestServer) handleCacheMetrics(c *gin.Context) {
	if rs.lbCache == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "metrics": rs.lbCache.GetMetrics()})
}

// handleHealth обрабатывает GET /health.
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "uptime": rs.metrics.GetUptime()})
}
