package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"action-engine/internal/common/errors"
)

const (
	lockKeyPrefix  = "turnlock:"
	DefaultLockTTL = 30 * time.Second
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TurnLock is a SETNX lock per conversation. The TTL bounds a lock whose
// holder died.
type TurnLock struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewTurnLock(client redis.Cmdable, ttl time.Duration) *TurnLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &TurnLock{client: client, ttl: ttl}
}

func lockKey(conversationID string) string {
	return lockKeyPrefix + conversationID
}

// Acquire takes the lock or fails with a CONVERSATION_BUSY error.
func (l *TurnLock) Acquire(ctx context.Context, conversationID string) (Unlock, error) {
	key := lockKey(conversationID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.NewPendingStoreError("lock", err)
	}
	if !ok {
		return nil, errors.NewConversationBusyError(conversationID)
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return errors.NewPendingStoreError("unlock", err)
		}
		return nil
	}, nil
}

// MemoryLock is the in-process Locker.
type MemoryLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemoryLock() *MemoryLock {
	return &MemoryLock{held: make(map[string]bool)}
}

func (l *MemoryLock) Acquire(_ context.Context, conversationID string) (Unlock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[conversationID] {
		return nil, errors.NewConversationBusyError(conversationID)
	}
	l.held[conversationID] = true

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, conversationID)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
