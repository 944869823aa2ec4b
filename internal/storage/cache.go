package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"roomchat/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

func banKey(userID string) string      { return "ban:" + userID }
func identityKey(userID string) string { return "cache:identity:" + userID }

// IsUserBanned reports whether an active ban key exists for userID.
func (s *Service) IsUserBanned(ctx context.Context, userID string) (bool, error) {
	if s.Redis == nil {
		return false, nil
	}
	status, err := s.Redis.Get(ctx, banKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// BanUser blocks new connections for userID. A zero duration bans until UnbanUser.
func (s *Service) BanUser(ctx context.Context, userID string, duration time.Duration) error {
	if s.Redis == nil {
		return errors.New("redis is not configured")
	}
	return s.Redis.Set(ctx, banKey(userID), "banned", duration).Err()
}

// UnbanUser lifts a ban. Unbanning a user that is not banned is a no-op.
func (s *Service) UnbanUser(ctx context.Context, userID string) error {
	if s.Redis == nil {
		return errors.New("redis is not configured")
	}
	return s.Redis.Del(ctx, banKey(userID)).Err()
}

// CacheIdentity stores the resolved identity so that admissions skip the database.
func (s *Service) CacheIdentity(ctx context.Context, identity models.Identity, ttl time.Duration) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, identityKey(identity.ID), payload, ttl).Err()
}

// GetCachedIdentity returns nil without error on a cache miss.
func (s *Service) GetCachedIdentity(ctx context.Context, userID string) (*models.Identity, error) {
	if s.Redis == nil {
		return nil, nil
	}
	raw, err := s.Redis.Get(ctx, identityKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var identity models.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}
