package middleware

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

const (
	throttlePrefix     = "baynext:login"
	localThrottleSize  = 10000
	DefaultMaxAttempts = 10
	DefaultWindow      = 15 * time.Minute
)

// ThrottleRecorder observes rejected login attempts
type ThrottleRecorder interface {
	RecordLoginThrottled()
}

type localCount struct {
	count   int64
	expires time.Time
}

// LoginThrottle counts failed logins per email and client address. Counts
// live in Redis so every instance shares them; when Redis is absent or
// failing, a per-instance in-memory count is used instead. Each window is
// fixed: it opens at the first failure and closes window later.
type LoginThrottle struct {
	redis    *redis.Client
	local    *lru.LRU[string, localCount]
	mu       sync.Mutex
	max      int64
	window   time.Duration
	log      logrus.FieldLogger
	recorder ThrottleRecorder
	now      func() time.Time
}

// NewLoginThrottle creates a throttle allowing max failures per window.
// client may be nil.
func NewLoginThrottle(client *redis.Client, max int, window time.Duration, logger logrus.FieldLogger) *LoginThrottle {
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LoginThrottle{
		redis:  client,
		local:  lru.NewLRU[string, localCount](localThrottleSize, nil, window),
		max:    int64(max),
		window: window,
		log:    logger,
		now:    time.Now,
	}
}

// SetRecorder registers a recorder for throttled attempts
func (t *LoginThrottle) SetRecorder(r ThrottleRecorder) {
	t.recorder = r
}

// Check reports whether another login attempt is allowed. When it is not,
// retryAfter is the time left in the current window.
func (t *LoginThrottle) Check(ctx context.Context, email, ip string) (allowed bool, retryAfter time.Duration) {
	key := throttleKey(email, ip)

	count, ttl, err := t.remoteCount(ctx, key)
	if err != nil {
		count, ttl = t.localCount(key)
	}

	if count < t.max {
		return true, 0
	}
	if t.recorder != nil {
		t.recorder.RecordLoginThrottled()
	}
	if ttl <= 0 {
		ttl = t.window
	}
	return false, ttl
}

// Fail records a failed attempt. The window starts at the first failure.
func (t *LoginThrottle) Fail(ctx context.Context, email, ip string) {
	key := throttleKey(email, ip)

	if t.redis != nil {
		err := t.remoteFail(ctx, key)
		if err == nil {
			return
		}
		t.log.WithError(err).Warn("login throttle: redis unavailable, counting locally")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	entry, ok := t.local.Get(key)
	if !ok || !now.Before(entry.expires) {
		entry = localCount{expires: now.Add(t.window)}
	}
	entry.count++
	t.local.Add(key, entry)
}

func (t *LoginThrottle) remoteFail(ctx context.Context, key string) error {
	pipe := t.redis.Pipeline()
	pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	// negative means the key has no expiry yet: this is the first failure
	if ttl.Val() < 0 {
		return t.redis.Expire(ctx, key, t.window).Err()
	}
	return nil
}

// Reset clears the count after a successful login
func (t *LoginThrottle) Reset(ctx context.Context, email, ip string) {
	key := throttleKey(email, ip)

	if t.redis != nil {
		if err := t.redis.Del(ctx, key).Err(); err != nil {
			t.log.WithError(err).Warn("login throttle: failed to reset count")
		}
	}

	t.mu.Lock()
	t.local.Remove(key)
	t.mu.Unlock()
}

func (t *LoginThrottle) remoteCount(ctx context.Context, key string) (int64, time.Duration, error) {
	if t.redis == nil {
		return 0, 0, fmt.Errorf("no redis client")
	}

	pipe := t.redis.Pipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, 0, err
	}

	count, err := get.Int64()
	if err == redis.Nil {
		return 0, 0, nil
	} else if err != nil {
		return 0, 0, err
	}
	return count, ttl.Val(), nil
}

func (t *LoginThrottle) localCount(key string) (int64, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.local.Get(key)
	now := t.now()
	if !ok || !now.Before(entry.expires) {
		return 0, 0
	}
	return entry.count, entry.expires.Sub(now)
}

func throttleKey(email, ip string) string {
	return fmt.Sprintf("%s:%s:%s", throttlePrefix, strings.ToLower(strings.TrimSpace(email)), ip)
}
