package auth

import (
	"context"
	"fmt"
	"log"
	"time"

	"roomchat/backend/internal/models"
)

// Verifier turns an opaque credential into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (models.Identity, error)
}

// UserSource is the slice of storage the verifier needs.
type UserSource interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	IsUserBanned(ctx context.Context, userID string) (bool, error)
	CacheIdentity(ctx context.Context, identity models.Identity, ttl time.Duration) error
	GetCachedIdentity(ctx context.Context, userID string) (*models.Identity, error)
}

// IdentityVerifier checks the JWT, rejects banned users and resolves the
// profile through the Redis cache, falling back to the database.
type IdentityVerifier struct {
	Tokens   *TokenManager
	Users    UserSource
	CacheTTL time.Duration
}

func NewIdentityVerifier(tokens *TokenManager, users UserSource, cacheTTL time.Duration) *IdentityVerifier {
	return &IdentityVerifier{Tokens: tokens, Users: users, CacheTTL: cacheTTL}
}

func (v *IdentityVerifier) Verify(ctx context.Context, token string) (models.Identity, error) {
	claims, err := v.Tokens.Parse(token)
	if err != nil {
		return models.Identity{}, err
	}

	banned, err := v.Users.IsUserBanned(ctx, claims.UserID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("check ban: %w", err)
	}
	if banned {
		return models.Identity{}, ErrBanned
	}

	cached, err := v.Users.GetCachedIdentity(ctx, claims.UserID)
	if err != nil {
		log.Printf("WARNING: identity cache read failed for %s: %v", claims.UserID, err)
	}
	if cached != nil {
		return *cached, nil
	}

	user, err := v.Users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return models.Identity{}, ErrUnauthorized
	}

	identity := user.Identity()
	if err := v.Users.CacheIdentity(ctx, identity, v.CacheTTL); err != nil {
		log.Printf("WARNING: identity cache write failed for %s: %v", identity.ID, err)
	}
	return identity, nil
}
