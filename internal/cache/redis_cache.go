package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss возвращается, когда ключа нет в кеше.
var ErrCacheMiss = errors.New("cache miss")

// Config содержит конфигурацию Redis-кеша таблицы рекордов.
type Config struct {
	RedisURL      string        // адрес Redis, например localhost:6379
	RedisPassword string        // пароль (может быть пустым)
	RedisDB       int           // номер БД
	TTL           time.Duration // срок жизни закешированного ответа
}

// Metrics — счётчики производительности кеша.
type Metrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`
}

// LeaderboardCache — горячий кеш ответов GET /leaderboard в Redis.
// Сервер остаётся корректным без него: кеш только снимает повторные
// чтения всей коллекции с хранилища записей.
//
// Использование:
//
//	c, _ := cache.NewLeaderboardCache(cfg)
//	data, err := c.Get(ctx, "pong")
//	_ = c.Set(ctx, "pong", data)
//	_ = c.Invalidate(ctx, "pong")
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration

	invalidator *NATSInvalidator // может быть nil (один узел)

	hits     int64
	misses   int64
	requests int64
}

// NewLeaderboardCache подключается к Redis и возвращает кеш.
func NewLeaderboardCache(cfg Config) (*LeaderboardCache, error) {
	if cfg.TTL == 0 {
		cfg.TTL = 30 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisURL,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	return &LeaderboardCache{client: rdb, ttl: cfg.TTL}, nil
}

// SetInvalidator подключает NATS-рассылку инвалидаций между узлами.
// Удалённые уведомления удаляют соответствующий ключ локально.
func (c *LeaderboardCache) SetInvalidator(inv *NATSInvalidator) error {
	c.invalidator = inv
	return inv.Subscribe(func(game string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return c.client.Del(ctx, cacheKey(game)).Err()
	})
}

// cacheKey строит ключ Redis; пустая игра — общий список.
func cacheKey(game string) string {
	if game == "" {
		return "arcade:leaderboard:all"
	}
	return "arcade:leaderboard:" + game
}

// Get возвращает закешированный ответ или ErrCacheMiss.
func (c *LeaderboardCache) Get(ctx context.Context, game string) ([]byte, error) {
	atomic.AddInt64(&c.requests, 1)

	data, err := c.client.Get(ctx, cacheKey(game)).Bytes()
	if err == redis.Nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, ErrCacheMiss
	}
	if err != nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, fmt.Errorf("ошибка чтения из Redis: %w", err)
	}

	atomic.AddInt64(&c.hits, 1)
	return data, nil
}

// Set сохраняет готовый JSON-ответ с настроенным TTL.
func (c *LeaderboardCache) Set(ctx context.Context, game string, payload []byte) error {
	return c.client.Set(ctx, cacheKey(game), payload, c.ttl).Err()
}

// Invalidate удаляет ключи игры и общего списка и рассылает уведомление.
// Реализует leaderboard.Invalidator.
func (c *LeaderboardCache) Invalidate(ctx context.Context, game string) error {
	if err := c.client.Del(ctx, cacheKey(game), cacheKey("")).Err(); err != nil {
		return fmt.Errorf("ошибка удаления ключа из Redis: %w", err)
	}

	if c.invalidator != nil {
		if err := c.invalidator.Publish(ctx, game); err != nil {
			return err
		}
		return c.invalidator.Publish(ctx, "")
	}
	return nil
}

// GetMetrics возвращает счётчики кеша.
func (c *LeaderboardCache) GetMetrics() Metrics {
	m := Metrics{
		TotalRequests: atomic.LoadInt64(&c.requests),
		CacheHits:     atomic.LoadInt64(&c.hits),
		CacheMisses:   atomic.LoadInt64(&c.misses),
	}
	if m.TotalRequests > 0 {
		m.HitRatio = float64(m.CacheHits) / float64(m.TotalRequests)
	}
	return m
}

// Close закрывает соединения кеша.
func (c *LeaderboardCache) Close() error {
	if c.invalidator != nil {
		c.invalidator.Close()
	}
	return c.client.Close()
}
