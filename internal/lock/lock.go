package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

// unlockScript deletes the key only when it still holds our value, so an
// expired lock taken over by another holder is never released by us.
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// Lock is a redis SET NX lock used to serialize gate operations across
// server instances. Expiration bounds the damage of a crashed holder.
type Lock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func New(client *redis.Client, key, value string, expiration time.Duration) *Lock {
	return &Lock{client: client, key: key, value: value, expiration: expiration}
}

// TryAcquire attempts the lock once without blocking.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Acquire retries until the lock is held or maxRetries is exhausted.
func (l *Lock) Acquire(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockNotAcquired
}

func (l *Lock) Release(ctx context.Context) error {
	_, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Result()
	return err
}

// ForResource builds the lock guarding a (user, resource) pay-once grant.
func ForResource(client *redis.Client, userID uint, resourceType, resourceID, holder string) *Lock {
	key := fmt.Sprintf("gate:lock:%d:%s:%s", userID, resourceType, resourceID)
	return New(client, key, holder, 10*time.Second)
}

// ForRefund builds the lock guarding refund of a single transaction.
func ForRefund(client *redis.Client, transactionID uint, holder string) *Lock {
	key := fmt.Sprintf("refund:lock:%d", transactionID)
	return New(client, key, holder, 10*time.Second)
}
