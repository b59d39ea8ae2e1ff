package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL          = 30 * time.Second
	DefaultRetryBackoff = 25 * time.Millisecond
)

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every process using the same Redis instance.
// A holder that dies keeps the key until TTL expires.
type Redis struct {
	client  redis.Cmdable
	prefix  string
	ttl     time.Duration
	backoff time.Duration
	// OnReleaseError is called when a release fails; the key then expires on TTL.
	OnReleaseError func(key string, err error)
}

// RedisOption configures a Redis lock.
type RedisOption func(*Redis)

// WithTTL bounds how long a crashed holder can keep a key.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithPrefix namespaces lock keys.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithRetryBackoff sets the pause between acquisition attempts.
func WithRetryBackoff(backoff time.Duration) RedisOption {
	return func(r *Redis) {
		if backoff > 0 {
			r.backoff = backoff
		}
	}
}

// NewRedis returns a lock over client.
func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{
		client:  client,
		prefix:  "slot-engine:lock:",
		ttl:     DefaultTTL,
		backoff: DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	key = r.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(timeout)

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return r.releaser(key, token), nil
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, ErrBusy
		}
		if wait > r.backoff {
			wait = r.backoff
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Redis) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may be cancelled by now.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := releaseScript.Run(ctx, r.client, []string{key}, token).Err()
			if err != nil && r.OnReleaseError != nil {
				r.OnReleaseError(key, err)
			}
		})
	}
}
