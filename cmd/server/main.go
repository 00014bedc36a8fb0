package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/arcade-hub/internal/api"
	"github.com/annel0/arcade-hub/internal/auth"
	"github.com/annel0/arcade-hub/internal/cache"
	"github.com/annel0/arcade-hub/internal/config"
	"github.com/annel0/arcade-hub/internal/leaderboard"
	"github.com/annel0/arcade-hub/internal/logging"
	"github.com/annel0/arcade-hub/internal/observability"
	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или ENV ARCADE_CONFIG)")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🕹️  Запуск Arcade Hub: таблицы рекордов и аккаунты...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка чтения конфигурации: %v", err)
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	dataDir := cfg.Storage.GetDataDir()
	logging.Info("📡 Конфигурация: REST=%s, данные=%s", restPort, dataDir)

	// === ТЕЛЕМЕТРИЯ ===
	if cfg.Telemetry.Enabled {
		shutdownTracer, err := observability.InitTelemetry(context.Background(), "arcade-hub")
		if err != nil {
			logging.Warn("⚠️ Телеметрия недоступна: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	// === ХРАНИЛИЩЕ АККАУНТОВ ===
	userRepo, err := buildUserRepo(cfg, dataDir)
	if err != nil {
		logging.Error("❌ Ошибка инициализации хранилища аккаунтов: %v", err)
		log.Fatalf("❌ Ошибка инициализации хранилища аккаунтов: %v", err)
	}

	// Сидируем администратора, если задан пароль через окружение.
	seedAdmin(userRepo)

	// === ХРАНИЛИЩЕ ТАБЛИЦЫ РЕКОРДОВ ===
	lbRepo, closeRepo, err := buildLeaderboardRepo(cfg, dataDir)
	if err != nil {
		logging.Error("❌ Ошибка инициализации хранилища рекордов: %v", err)
		log.Fatalf("❌ Ошибка инициализации хранилища рекордов: %v", err)
	}
	if closeRepo != nil {
		defer closeRepo()
	}

	scores := leaderboard.NewService(lbRepo, userRepo)

	// === ГОРЯЧИЙ КЕШ (опционально) ===
	var lbCache *cache.LeaderboardCache
	if cfg.Cache.Enabled {
		lbCache, err = cache.NewLeaderboardCache(cache.Config{
			RedisURL: cfg.Cache.RedisURL,
			RedisDB:  cfg.Cache.RedisDB,
			TTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		})
		if err != nil {
			logging.Warn("⚠️ Redis недоступен, кеш отключен: %v", err)
			lbCache = nil
		} else {
			defer lbCache.Close()
			scores.SetInvalidator(lbCache)

			if cfg.Cache.NATSURL != "" {
				inv, err := cache.NewNATSInvalidator(cfg.Cache.NATSURL, uuid.NewString())
				if err != nil {
					logging.Warn("⚠️ NATS недоступен, межузловая инвалидация отключена: %v", err)
				} else {
					defer inv.Close()
					if err := lbCache.SetInvalidator(inv); err != nil {
						logging.Warn("⚠️ Подписка на инвалидацию не удалась: %v", err)
					}
				}
			}
		}
	}

	// === REST API ===
	restServer := api.NewRestServer(api.Config{
		Port:     restPort,
		UserRepo: userRepo,
		Scores:   scores,
		Cache:    lbCache,
	})

	if err := restServer.Start(); err != nil {
		logging.Error("❌ Ошибка запуска REST API: %v", err)
		log.Fatalf("❌ Ошибка запуска REST API: %v", err)
	}

	logging.Info("✅ Все сервисы запущены и готовы принимать соединения")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	logging.Info("💡 Примеры:")
	logging.Info("   curl http://localhost%s/leaderboard?game=pong", restPort)
	logging.Info("   curl -X POST http://localhost%s/register -H 'Content-Type: application/json' -d '{\"username\":\"alice\",\"password\":\"secret\"}'", restPort)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	if err := restServer.Stop(); err != nil {
		logging.Error("Ошибка остановки REST API: %v", err)
	}

	logging.Info("👋 Сервер остановлен")
}

// buildUserRepo выбирает бэкенд аккаунтов по конфигурации.
func buildUserRepo(cfg *config.Config, dataDir string) (auth.UserRepository, error) {
	switch cfg.Accounts.Backend {
	case "", "file":
		return auth.NewFileUserRepo(dataDir)
	case "memory":
		return auth.NewMemoryUserRepo(), nil
	case "maria":
		return auth.NewMariaUserRepo(auth.MariaConfig{
			Host:     cfg.Accounts.Maria.Host,
			Port:     cfg.Accounts.Maria.Port,
			Database: cfg.Accounts.Maria.Database,
			Username: cfg.Accounts.Maria.Username,
			Password: cfg.Accounts.Maria.Password,
		})
	case "mongo":
		return auth.NewMongoUserRepo(auth.MongoConfig{
			URI:        cfg.Accounts.Mongo.URI,
			Database:   cfg.Accounts.Mongo.Database,
			Collection: cfg.Accounts.Mongo.Collection,
		})
	default:
		return nil, fmt.Errorf("неизвестный бэкенд аккаунтов: %s", cfg.Accounts.Backend)
	}
}

// buildLeaderboardRepo выбирает бэкенд таблицы рекордов по конфигурации.
func buildLeaderboardRepo(cfg *config.Config, dataDir string) (leaderboard.Repository, func(), error) {
	switch cfg.Storage.Backend {
	case "", "file":
		repo, err := leaderboard.NewFileRepo(dataDir)
		return repo, nil, err
	case "memory":
		return leaderboard.NewMemoryRepo(), nil, nil
	case "badger":
		repo, err := leaderboard.NewBadgerRepo(dataDir)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				logging.Error("Ошибка закрытия BadgerDB: %v", err)
			}
		}, err
	default:
		return nil, nil, fmt.Errorf("неизвестный бэкенд рекордов: %s", cfg.Storage.Backend)
	}
}

// seedAdmin создает административный аккаунт из переменных окружения.
// Без ARCADE_ADMIN_PASSWORD административная поверхность остаётся пустой.
func seedAdmin(repo auth.UserRepository) {
	password := os.Getenv("ARCADE_ADMIN_PASSWORD")
	if password == "" {
		return
	}

	username := os.Getenv("ARCADE_ADMIN_USER")
	if username == "" {
		username = "admin"
	}

	if secret := os.Getenv("ARCADE_JWT_SECRET"); secret != "" {
		if err := auth.SetJWTSecret(secret); err != nil {
			logging.Warn("⚠️ Не удалось установить JWT секрет: %v", err)
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logging.Error("Ошибка хеширования пароля администратора: %v", err)
		return
	}

	if _, err := repo.CreateUser(username, hash, true); err != nil {
		if err != auth.ErrUserExists {
			logging.Error("Ошибка создания администратора: %v", err)
		}
		return
	}
	logging.Info("🔐 Создан административный аккаунт: %s", username)
}
