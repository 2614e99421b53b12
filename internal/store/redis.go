package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avolkov/relay/internal/domain"
)

// Redis key patterns:
// user:{id}  HASH  username, online ("0"/"1"), last_seen (unix seconds)

func userKey(id domain.UserID) string {
	return fmt.Sprintf("user:%s", id)
}

// RedisStore keeps per-user online status in a Redis hash so the REST side of
// the product can render "last seen" without talking to the relay.
type RedisStore struct {
	client *redis.Client
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	vals, err := s.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return &domain.User{ID: id, Username: vals["username"]}, nil
}

func (s *RedisStore) UpdateOnlineStatus(ctx context.Context, id domain.UserID, online bool, lastSeen time.Time) error {
	onlineVal := "0"
	if online {
		onlineVal = "1"
	}
	return s.client.HSet(ctx, userKey(id),
		"online", onlineVal,
		"last_seen", strconv.FormatInt(lastSeen.Unix(), 10),
	).Err()
}
