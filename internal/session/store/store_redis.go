package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"address-cri/internal/session/models"
	id "address-cri/pkg/domain"
	"address-cri/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "cri:session:"
	tokenKeyPrefix   = "cri:token:"

	// expiryGrace keeps expired sessions readable for a window past their
	// TTL so callers can distinguish "expired" from "never existed".
	expiryGrace = time.Hour
)

// RedisStore is the Redis-backed session store for distributed deployments.
// Records are JSON-encoded with key TTLs derived from session expiry;
// concurrent updates are last-write-wins.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed session store.
// The client lifecycle is managed by the caller.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func tokenKey(token string) string {
	return tokenKeyPrefix + token
}

// keyTTL derives the redis key lifetime from session expiry. Confirmed
// sessions get the full retention window so the credential stays collectable
// past the session TTL.
func (s *RedisStore) keyTTL(session *models.Session) time.Duration {
	grace := expiryGrace
	if session.State == models.StateAddressConfirmed {
		grace = confirmedRetention
	}
	ttl := time.Until(session.ExpiresAt) + grace
	if ttl <= 0 {
		ttl = grace
	}
	return ttl
}

func (s *RedisStore) write(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), payload, s.keyTTL(session)).Err(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), payload, s.keyTTL(session)).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session already exists: %w", sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) FindByAccessToken(ctx context.Context, token string) (*models.Session, error) {
	raw, err := s.client.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("access token not bound: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read token binding: %w", err)
	}
	sessionID, err := id.ParseSessionID(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt token binding: %w", err)
	}
	return s.FindByID(ctx, sessionID)
}

func (s *RedisStore) Update(ctx context.Context, session *models.Session) error {
	exists, err := s.client.Exists(ctx, sessionKey(session.ID)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return s.write(ctx, session)
}

func (s *RedisStore) BindAccessToken(ctx context.Context, sessionID id.SessionID, token string) error {
	session, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, tokenKey(token), sessionID.String(), s.keyTTL(session)).Result()
	if err != nil {
		return fmt.Errorf("bind access token: %w", err)
	}
	if !ok {
		return fmt.Errorf("access token already bound: %w", sentinel.ErrConflict)
	}
	session.AccessToken = token
	return s.write(ctx, session)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	session, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	keys := []string{sessionKey(sessionID)}
	if session.AccessToken != "" {
		keys = append(keys, tokenKey(session.AccessToken))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
