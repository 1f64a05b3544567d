// Package cache fornisce il client Redis condiviso (rate limiting distribuito).
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config configurazione della connessione Redis
type Config struct {
	Host     string
	Password string
	DB       int
}

// RedisClient wrapper per redis client
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient crea un nuovo client Redis
func NewRedisClient(host, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         host,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// New crea un client dalla configurazione
func New(cfg Config) (*RedisClient, error) {
	return NewRedisClient(cfg.Host, cfg.Password, cfg.DB)
}

// Ping verifica la connessione
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Del elimina una chiave dalla cache
func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// Close chiude la connessione Redis
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Client restituisce il client Redis nativo
func (r *RedisClient) Client() *redis.Client {
	return r.client
}
