package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrorRecorder is notified of every swallowed backend failure.
type ErrorRecorder interface {
	CacheError(op string)
}

// Redis adapts a go-redis client to the Cache contract. Failures are logged
// and reported as misses or no-ops. Commands run through a circuit breaker,
// so an unreachable server costs nothing while the breaker is open.
type Redis struct {
	client   redis.UniversalClient
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
	recorder ErrorRecorder
}

// NewRedis parses a redis:// URL and builds the adapter. The connection is
// established lazily by go-redis; use Ping to check it.
func NewRedis(url string, logger *zap.Logger, recorder ErrorRecorder) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisFromClient(redis.NewClient(opts), logger, recorder), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client redis.UniversalClient, logger *zap.Logger, recorder ErrorRecorder) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client:   client,
		breaker:  newBreaker("redis-cache", logger),
		logger:   logger,
		recorder: recorder,
	}
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Get returns the value stored under key.
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	res, err := r.breaker.Execute(func() (interface{}, error) {
		val, err := r.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return val, err
	})
	if err != nil {
		r.fail("get", err, zap.String("key", key))
		return "", false
	}
	val, ok := res.(string)
	return val, ok
}

// Set stores value under key with an expiry.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if err := r.exec(func() error { return r.client.Set(ctx, key, value, ttl).Err() }); err != nil {
		r.fail("set", err, zap.String("key", key))
		return false
	}
	return true
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) bool {
	if err := r.exec(func() error { return r.client.Del(ctx, key).Err() }); err != nil {
		r.fail("delete", err, zap.String("key", key))
		return false
	}
	return true
}

// DeleteMany removes all keys in one pipeline.
func (r *Redis) DeleteMany(ctx context.Context, keys ...string) bool {
	if len(keys) == 0 {
		return true
	}

	err := r.exec(func() error {
		_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			return nil
		})
		return err
	})
	if err != nil {
		r.fail("delete_many", err, zap.Strings("keys", keys))
		return false
	}
	return true
}

// Client exposes the underlying client for components that share the
// connection, such as the rate limiter store.
func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) exec(fn func() error) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func (r *Redis) fail(op string, err error, fields ...zap.Field) {
	r.logger.Warn("cache operation failed", append(fields, zap.String("op", op), zap.Error(err))...)
	if r.recorder != nil {
		r.recorder.CacheError(op)
	}
}
