// Package drafts persists quick-order pipeline drafts in Redis, one
// JSON blob per session, with a rolling TTL.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/redis"
)

// kv is the slice of the Redis client the store needs.
type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DraftKey(sessionID string) string
}

// Store implements pipeline.DraftStore on top of Redis.
type Store struct {
	kv  kv
	ttl time.Duration
}

// NewStore builds a draft store. TTL bounds how long an abandoned draft
// survives; every save renews it.
func NewStore(client *redis.Client, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{kv: client, ttl: ttl}, nil
}

// Save serializes the draft and writes it under the session's key.
func (s *Store) Save(ctx context.Context, sessionID string, draft pipeline.Draft) error {
	if sessionID == "" {
		return errors.New("session id required")
	}
	blob, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.DraftKey(sessionID), blob, s.ttl); err != nil {
		return fmt.Errorf("store draft: %w", err)
	}
	return nil
}

// Load returns the session's draft, nil when none exists. Blobs that
// fail to decode (even after the legacy migration) are treated as
// absent and removed so they cannot wedge the session.
func (s *Store) Load(ctx context.Context, sessionID string) (*pipeline.Draft, error) {
	if sessionID == "" {
		return nil, errors.New("session id required")
	}
	key := s.kv.DraftKey(sessionID)
	blob, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load draft: %w", err)
	}

	draft, err := decodeDraft([]byte(blob))
	if err != nil {
		_ = s.kv.Del(ctx, key)
		return nil, nil
	}
	return draft, nil
}

// Clear removes the session's draft.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("session id required")
	}
	if err := s.kv.Del(ctx, s.kv.DraftKey(sessionID)); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
