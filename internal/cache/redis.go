// Package cache реализует кэширование снимков состояния шлюза в Redis
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"sensor-gateway/internal/models"
)

const (
	// StatusKey ключ последнего снимка состояния
	StatusKey = "gateway:status:latest"
	// SnapshotListKey ключ списка недавних снимков
	SnapshotListKey = "gateway:status:recent"
	// TicksCounterKey счетчик записей в историю
	TicksCounterKey = "gateway:ticks:total"
	// ReadingsCounterKey счетчик принятых показаний
	ReadingsCounterKey = "gateway:readings:total"
	// SnapshotListLimit сколько недавних снимков хранить
	SnapshotListLimit = 200
	// StatusTTL время жизни последнего снимка
	StatusTTL = 5 * time.Minute
)

// RedisCache реализует кэширование в Redis
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisCache создает новое подключение к Redis
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx := context.Background()

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ctx:    ctx,
	}, nil
}

// CacheStatus сохраняет снимок состояния: последний по ключу StatusKey
// и в ограниченный список недавних
func (r *RedisCache) CacheStatus(report models.StatusReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal status report: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(r.ctx, StatusKey, data, StatusTTL)
	pipe.LPush(r.ctx, SnapshotListKey, data)
	pipe.LTrim(r.ctx, SnapshotListKey, 0, SnapshotListLimit-1)

	if _, err := pipe.Exec(r.ctx); err != nil {
		return fmt.Errorf("failed to cache status report: %w", err)
	}
	return nil
}

// GetRecentStatuses возвращает последние count снимков состояния
func (r *RedisCache) GetRecentStatuses(count int64) ([]models.StatusReport, error) {
	data, err := r.client.LRange(r.ctx, SnapshotListKey, 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent statuses: %w", err)
	}

	reports := make([]models.StatusReport, 0, len(data))
	for _, d := range data {
		var report models.StatusReport
		if err := json.Unmarshal([]byte(d), &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// IncrementCounter увеличивает счетчик
func (r *RedisCache) IncrementCounter(key string) (int64, error) {
	return r.client.Incr(r.ctx, key).Result()
}

// GetCounter возвращает значение счетчика
func (r *RedisCache) GetCounter(key string) (int64, error) {
	val, err := r.client.Get(r.ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Ping проверяет соединение с Redis
func (r *RedisCache) Ping() error {
	return r.client.Ping(r.ctx).Err()
}

// Close закрывает соединение
func (r *RedisCache) Close() error {
	return r.client.Close()
}
