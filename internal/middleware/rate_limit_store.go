package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// WindowStore is a fixed-window echo rate limiter store that can also
// tell how long until an identifier's window resets.
type WindowStore interface {
	middleware.RateLimiterStore
	ResetAfter(identifier string) time.Duration
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryWindowStore counts requests per identifier in fixed windows held
// in process memory. Expired windows are swept at most once per window.
type MemoryWindowStore struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
}

func NewMemoryWindowStore(limit int, period time.Duration) *MemoryWindowStore {
	return &MemoryWindowStore{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

func (s *MemoryWindowStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	w, ok := s.windows[identifier]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(s.period)}
		s.windows[identifier] = w
	}

	if w.count >= s.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

func (s *MemoryWindowStore) ResetAfter(identifier string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[identifier]
	if !ok {
		return 0
	}
	if d := w.resetAt.Sub(s.now()); d > 0 {
		return d
	}
	return 0
}

func (s *MemoryWindowStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.period {
		return
	}
	for id, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, id)
		}
	}
	s.lastSweep = now
}

// RedisWindowStore keeps the windows in Redis so every instance shares one
// budget. The first hit in a window sets the key's expiry.
//
// Redis failures let the request through: an unavailable limiter must not
// take the API down with it.
type RedisWindowStore struct {
	client  redis.UniversalClient
	limit   int
	period  time.Duration
	prefix  string
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewRedisWindowStore(client redis.UniversalClient, limit int, period time.Duration, logger *zerolog.Logger) *RedisWindowStore {
	return &RedisWindowStore{
		client:  client,
		limit:   limit,
		period:  period,
		prefix:  "ratelimit:",
		timeout: 500 * time.Millisecond,
		logger:  logger,
	}
}

func (s *RedisWindowStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	key := s.prefix + identifier

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("rate limit store unavailable, allowing request")
		return true, nil
	}

	// A negative TTL means the key has no expiry yet: this is the first hit
	// of a new window.
	if ttl.Val() < 0 {
		if err := s.client.PExpire(ctx, key, s.period).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to set rate limit window expiry")
		}
	}

	return incr.Val() <= int64(s.limit), nil
}

func (s *RedisWindowStore) ResetAfter(identifier string) time.Duration {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	d, err := s.client.PTTL(ctx, s.prefix+identifier).Result()
	if err != nil || d < 0 {
		return 0
	}
	return d
}
