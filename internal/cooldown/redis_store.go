package cooldown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OldStager01/paas-autoscaler/internal/logger"
	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

// redisHashFor maps a CooldownKind onto the hash namespace the KV
// collaborator contract names: "last_scale_up" / "last_scale_down",
// field = app name, value = UTC-epoch-seconds.
func redisHashFor(kind models.CooldownKind) string {
	if kind == models.CooldownDown {
		return "last_scale_down"
	}
	return "last_scale_up"
}

// RedisStore is the durable CooldownStore backed by REDIS_URL. A write
// failure here is logged and returned; the decision engine logs it and
// carries on, so it never aborts a tick, and that app/kind's record is
// simply missing from Redis until the next successful write.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cooldown: parse REDIS_URL: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func (r *RedisStore) Get(ctx context.Context, appName string, kind models.CooldownKind) (time.Time, bool, error) {
	val, err := r.client.HGet(ctx, redisHashFor(kind), appName).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("cooldown: redis hget: %w", err)
	}

	epoch, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("cooldown: parse stored timestamp %q: %w", val, err)
	}
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC(), true, nil
}

func (r *RedisStore) Set(ctx context.Context, appName string, kind models.CooldownKind, at time.Time) error {
	epoch := float64(at.UnixNano()) / float64(time.Second)
	if err := r.client.HSet(ctx, redisHashFor(kind), appName, epoch).Err(); err != nil {
		logger.WithField("app_name", appName).Warnf("cooldown: redis write failed, cooldown record not stored: %v", err)
		return fmt.Errorf("cooldown: redis hset: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
