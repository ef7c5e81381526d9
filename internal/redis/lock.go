package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireDetectionLock attempts to take the payment detection lock for a ride request.
// Returns the lock token and true if acquired, false if another detection is running.
func (s *LockStore) AcquireDetectionLock(ctx context.Context, rideRequestID string, ttl time.Duration) (string, bool, error) {
	key := fmt.Sprintf("lock:detect:%s", rideRequestID)
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}

	return token, ok, nil
}

// ReleaseDetectionLock releases the detection lock if token still owns it.
func (s *LockStore) ReleaseDetectionLock(ctx context.Context, rideRequestID, token string) error {
	key := fmt.Sprintf("lock:detect:%s", rideRequestID)

	return releaseScript.Run(ctx, s.client, []string{key}, token).Err()
}
