package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection
type Options struct {
	Addr            string
	Password        string
	DB              int
	LastPositionTTL time.Duration
}

// RedisStore mirrors each user's latest position and journey status into Redis
type RedisStore struct {
	Rdb             *redis.Client
	LastPositionTTL time.Duration
	GEOKey          string
	ChannelPrefix   string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(opts Options) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}

	ttl := opts.LastPositionTTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisStore{
		Rdb:             rdb,
		LastPositionTTL: ttl,
		GEOKey:          "users:last",
		ChannelPrefix:   "journeys",
	}, nil
}

// UpdateLastPosition records the user in the GEO set and refreshes their heartbeat
func (s *RedisStore) UpdateLastPosition(ctx context.Context, userID string, lat, lon float64, at time.Time) error {
	if err := s.Rdb.GeoAdd(ctx, s.GEOKey, &redis.GeoLocation{
		Name:      userID,
		Longitude: lon,
		Latitude:  lat,
	}).Err(); err != nil {
		return fmt.Errorf("failed to update last position: %w", err)
	}
	return s.Rdb.Set(ctx, HeartbeatKey(userID), at.UTC().Format(time.RFC3339), s.LastPositionTTL).Err()
}

// PublishStatus fans a journey status out on the user's channel
func (s *RedisStore) PublishStatus(ctx context.Context, userID string, status any) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	if err := s.Rdb.Publish(ctx, UserChannel(s.ChannelPrefix, userID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish status: %w", err)
	}
	return nil
}

// Close releases the Redis connection
func (s *RedisStore) Close() error {
	return s.Rdb.Close()
}

// HeartbeatKey is the key holding the time of a user's last location update
func HeartbeatKey(userID string) string {
	return "user:heartbeat:" + userID
}

// UserChannel is the pub/sub channel journey statuses for a user are published on
func UserChannel(prefix, userID string) string {
	return prefix + ":user:" + userID
}
