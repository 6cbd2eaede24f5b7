package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forest-valley-trail/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore persists trail sessions as JSON blobs in Redis, one key per
// device, so a visitor's run survives service restarts and multiple instances
// can serve the same device.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, deviceID string) (domain.TrailSession, bool, error) {
	raw, err := s.client.Get(ctx, s.key(deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TrailSession{}, false, nil
	}
	if err != nil {
		return domain.TrailSession{}, false, fmt.Errorf("get session: %w", err)
	}

	var session domain.TrailSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.TrailSession{}, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, true, nil
}

func (s *SessionStore) Save(ctx context.Context, session domain.TrailSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.DeviceID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, deviceID string) error {
	if err := s.client.Del(ctx, s.key(deviceID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(deviceID string) string {
	return "trail:session:" + deviceID
}
