package wheel

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Spin guard strategy:
// - Acquire: SET NX with an expiry covering the animation window
// - Release: Lua compare-and-delete so only the owning spin frees the guard

// releaseGuardScript deletes the guard key only while it still holds the caller's token
const releaseGuardScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

// LocalSpinGuard guards a wheel that lives in a single process
type LocalSpinGuard struct {
	mu    sync.Mutex
	owner string
}

// NewLocalSpinGuard creates an in-process spin guard
func NewLocalSpinGuard() *LocalSpinGuard { return &LocalSpinGuard{} }

// TryAcquire takes the guard for token. The guard is held until Release, ttl is ignored.
func (g *LocalSpinGuard) TryAcquire(ctx context.Context, token string, _ time.Duration) (bool, error) {
	if token == "" {
		return false, ErrInvalidParameters.WithDetails("empty spin token")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.owner != "" {
		return false, nil
	}
	g.owner = token
	return true, nil
}

// Release frees the guard if token owns it
func (g *LocalSpinGuard) Release(_ context.Context, token string) (bool, error) {
	if token == "" {
		return false, ErrInvalidParameters.WithDetails("empty spin token")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.owner != token {
		return false, nil
	}
	g.owner = ""
	return true, nil
}

// RedisSpinGuard shares one wheel's guard between processes through Redis
type RedisSpinGuard struct {
	redisClient *redis.Client
	key         string
	expiration  time.Duration
}

// NewRedisSpinGuard creates a guard for wheelID whose key expires after the
// spin duration plus DefaultSpinGuardSlack
func NewRedisSpinGuard(redisClient *redis.Client, wheelID string, spinDuration time.Duration) *RedisSpinGuard {
	return NewRedisSpinGuardWithExpiration(redisClient, wheelID, spinDuration+DefaultSpinGuardSlack)
}

// NewRedisSpinGuardWithExpiration creates a guard whose key expires after
// expiration when TryAcquire is given no ttl
func NewRedisSpinGuardWithExpiration(redisClient *redis.Client, wheelID string, expiration time.Duration) *RedisSpinGuard {
	if expiration <= 0 {
		expiration = DefaultSpinDuration + DefaultSpinGuardSlack
	}
	return &RedisSpinGuard{
		redisClient: redisClient,
		key:         SpinGuardKeyPrefix + wheelID,
		expiration:  expiration,
	}
}

// Key returns the Redis key holding the guard
func (g *RedisSpinGuard) Key() string { return g.key }

// TryAcquire attempts to take the guard using SET NX. The key expires after
// ttl, or after the guard's own expiration when ttl is not positive.
func (g *RedisSpinGuard) TryAcquire(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	if token == "" {
		return false, ErrInvalidParameters.WithDetails("empty spin token")
	}
	if ttl <= 0 {
		ttl = g.expiration
	}

	acquired, err := g.redisClient.SetNX(ctx, g.key, token, ttl).Result()
	if err != nil {
		return false, ErrRedisConnectionFailed.WithOperation("spin_guard_acquire").WithCause(err)
	}
	return acquired, nil
}

// Release frees the guard if it still holds token
func (g *RedisSpinGuard) Release(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, ErrInvalidParameters.WithDetails("empty spin token")
	}

	result, err := g.redisClient.Eval(ctx, releaseGuardScript, []string{g.key}, token).Result()
	if err != nil {
		return false, ErrRedisConnectionFailed.WithOperation("spin_guard_release").WithCause(err)
	}

	released, ok := result.(int64)
	return ok && released == 1, nil
}
