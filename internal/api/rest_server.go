package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/annel0/arcade-hub/internal/auth"
	"github.com/annel0/arcade-hub/internal/cache"
	"github.com/annel0/arcade-hub/internal/leaderboard"
	"github.com/annel0/arcade-hub/internal/logging"
	"github.com/annel0/arcade-hub/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API сервер аркадного хаба.
type RestServer struct {
	router   *gin.Engine
	userRepo auth.UserRepository
	scores   *leaderboard.Service
	lbCache  *cache.LeaderboardCache // может быть nil
	port     string
	metrics  *ServerMetrics
	promMw   *middleware.PrometheusMiddleware
	httpSrv  *http.Server
}

// Config содержит конфигурацию для REST сервера.
type Config struct {
	Port     string                  // порт для запуска сервера, например ":4000"
	UserRepo auth.UserRepository     // репозиторий аккаунтов
	Scores   *leaderboard.Service    // согласователь результатов
	Cache    *cache.LeaderboardCache // горячий кеш (опционально)
}

// NewRestServer создает новый REST API сервер.
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":4000"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("arcade_api"))

	promMw := middleware.NewPrometheusMiddleware("arcade_api")
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:   router,
		userRepo: config.UserRepo,
		scores:   config.Scores,
		lbCache:  config.Cache,
		port:     config.Port,
		metrics:  NewServerMetrics(),
		promMw:   promMw,
	}

	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API.
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS: клиенты игр живут на другом origin.
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Игровая поверхность: без токенов, владение username — и есть
	// идентичность (см. модель доверия в документации).
	rs.router.POST("/register", rs.handleRegister)
	rs.router.POST("/login", rs.handleLogin)
	rs.router.GET("/leaderboard", rs.handleGetLeaderboard)
	rs.router.POST("/leaderboard", rs.handleSubmitScore)

	// Группа API для административной поверхности.
	api := rs.router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", rs.handleAdminLogin)
	}

	// Защищенные эндпоинты (требуют JWT + права администратора).
	admin := api.Group("/admin")
	admin.Use(rs.jwtMiddleware())
	admin.Use(rs.adminMiddleware())
	{
		admin.GET("/users", rs.handleGetUsers)
		admin.GET("/server", rs.handleServerInfo)
		admin.GET("/cache", rs.handleCacheMetrics)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// Start запускает HTTP сервер в отдельной горутине.
func (rs *RestServer) Start() error {
	rs.httpSrv = &http.Server{
		Addr:         rs.port,
		Handler:      rs.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := rs.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("❌ REST сервер остановился с ошибкой: %v", err)
		}
	}()

	logging.Info("🌐 REST API запущен на %s", rs.port)
	return nil
}

// Stop останавливает HTTP сервер с ожиданием активных запросов.
func (rs *RestServer) Stop() error {
	if rs.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rs.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка остановки REST сервера: %w", err)
	}
	return nil
}

// Router возвращает gin.Engine (для httptest).
func (rs *RestServer) Router() *gin.Engine {
	return rs.router
}
