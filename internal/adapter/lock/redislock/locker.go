// Package redislock provides the Redis-backed per-session lock.
//
// One interview tick mutates one session's state blob, so ticks for the
// same session must not interleave across replicas. The lock is a SetNX
// lease with a random token; release is a compare-and-delete script so a
// holder whose lease expired cannot free a lease reacquired by another
// replica.
package redislock

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Raghav-madderla/AIMI/internal/domain"
)

const defaultTTL = 60 * time.Second

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements domain.SessionLocker.
type Locker struct {
	rdb *redis.Client
}

// New constructs a Locker on an existing client.
func New(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

func lockKey(sessionID string) string { return "session_lock:" + sessionID }

// Acquire takes the session lease or returns ErrConflict when a
// concurrent tick holds it. The ttl bounds how long a crashed holder can
// block the session.
func (l *Locker) Acquire(ctx domain.Context, sessionID string, ttl time.Duration) (domain.UnlockFunc, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, lockKey(sessionID), token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("op=lock.acquire: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("op=lock.acquire: session %s held: %w", sessionID, domain.ErrConflict)
	}

	return func(ctx domain.Context) error {
		n, err := releaseScript.Run(ctx, l.rdb, []string{lockKey(sessionID)}, token).Int()
		if err != nil {
			return fmt.Errorf("op=lock.release: %w", err)
		}
		if n == 0 {
			// Lease outlived its TTL; the key is gone or another replica owns it.
			slog.Warn("session lock expired before release", slog.String("session_id", sessionID))
		}
		return nil
	}, nil
}
