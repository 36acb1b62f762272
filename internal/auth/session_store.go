package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const revokedKeyPrefix = "labissue:revoked:"

// SessionStore tracks tokens revoked by logout before they expire.
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisSessionStore keeps the denylist in Redis behind a circuit breaker.
// When Redis is unreachable revocation checks fail open and tokens stay valid until expiry.
type RedisSessionStore struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewRedisSessionStore wraps client.
func NewRedisSessionStore(client *redis.Client, logger *zap.Logger) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		cb:     newCircuitBreaker("redis-sessions", logger),
		logger: logger,
	}
}

func newCircuitBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// Revoke denylists tokenID for ttl. Non-positive ttl means the token already expired.
func (s *RedisSessionStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err()
	})
	return err
}

// IsRevoked reports whether tokenID was logged out.
func (s *RedisSessionStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		n, err := s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
		if err != nil {
			return nil, err
		}
		return n > 0, nil
	})
	if err != nil {
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Warn("session revocation check failed", zap.Error(err))
		}
		return false, err
	}
	return res.(bool), nil
}

// State exposes the breaker state for readiness reporting.
func (s *RedisSessionStore) State() gobreaker.State {
	return s.cb.State()
}
