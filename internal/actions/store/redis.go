package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"action-engine/internal/actions/slots"
	"action-engine/internal/common/errors"
	"action-engine/internal/common/logger"
)

const pendingKeyPrefix = "pending:"

// RedisPendingStore stores pending actions as JSON with an optional TTL.
type RedisPendingStore struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

// NewRedisPendingStore builds a store. A zero ttl keeps entries until replaced.
func NewRedisPendingStore(client redis.Cmdable, ttl time.Duration, log logger.Logger) *RedisPendingStore {
	return &RedisPendingStore{
		client: client,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "pending-store"}),
	}
}

func pendingKey(conversationID string) string {
	return pendingKeyPrefix + conversationID
}

func (s *RedisPendingStore) Get(ctx context.Context, conversationID string) (*slots.PendingAction, error) {
	data, err := s.client.Get(ctx, pendingKey(conversationID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewPendingStoreError("get", err)
	}

	var p slots.PendingAction
	if err := json.Unmarshal(data, &p); err != nil {
		// An unreadable entry cannot be resumed; drop it so the next turn starts fresh.
		s.logger.WithContext(ctx).Warn("discarding unreadable pending action", map[string]interface{}{
			"conversationId": conversationID,
			"error":          err.Error(),
		})
		_ = s.client.Del(ctx, pendingKey(conversationID)).Err()
		return nil, nil
	}
	return &p, nil
}

func (s *RedisPendingStore) Save(ctx context.Context, conversationID string, p *slots.PendingAction) error {
	if p == nil {
		return s.Delete(ctx, conversationID)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return errors.NewPendingStoreError("encode", err)
	}
	if err := s.client.Set(ctx, pendingKey(conversationID), data, s.ttl).Err(); err != nil {
		return errors.NewPendingStoreError("set", err)
	}
	return nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, pendingKey(conversationID)).Err(); err != nil {
		return errors.NewPendingStoreError("delete", err)
	}
	return nil
}
