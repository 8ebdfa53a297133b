package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const guestKeyPrefix = "guest_session:"

// Config holds the Redis connection settings.
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Connect opens a client and checks the connection.
func Connect(ctx context.Context, cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	slog.Info("Redis connected", "addr", cfg.Addr)
	return client, nil
}

// GuestSessions stores issued guest cookies with their expiry as Redis TTLs.
type GuestSessions struct {
	client *goredis.Client
}

func NewGuestSessions(client *goredis.Client) *GuestSessions {
	return &GuestSessions{client: client}
}

func (g *GuestSessions) Register(ctx context.Context, cookie string, ttl time.Duration) error {
	if err := g.client.Set(ctx, guestKeyPrefix+cookie, time.Now().UTC().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to save guest session: %w", err)
	}
	return nil
}

func (g *GuestSessions) Active(ctx context.Context, cookie string) (bool, error) {
	n, err := g.client.Exists(ctx, guestKeyPrefix+cookie).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up guest session: %w", err)
	}
	return n == 1, nil
}

// Revoke forgets a guest cookie, e.g. after its cart moved to a user.
func (g *GuestSessions) Revoke(ctx context.Context, cookie string) error {
	if err := g.client.Del(ctx, guestKeyPrefix+cookie).Err(); err != nil {
		return fmt.Errorf("failed to delete guest session: %w", err)
	}
	return nil
}
