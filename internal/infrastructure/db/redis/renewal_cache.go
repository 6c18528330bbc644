package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ledgerly/accounting-api/internal/core/domain"
	"github.com/ledgerly/accounting-api/internal/core/ports"
	"github.com/ledgerly/accounting-api/internal/pkg/tokenhash"
)

const keyPrefix = "renewal:"

// CachedRenewalTokenRepository is a read-through cache in front of the
// durable renewal token store. Key format: renewal:<blake3(token)>, value
// "<owner_id>|<expires_unix_ms>|<created_unix_ms>", expiring with the token.
//
// Cache failures are logged and fall back to the durable store.
type CachedRenewalTokenRepository struct {
	next   ports.RenewalTokenRepository
	client *redis.Client
	now    func() time.Time
	log    zerolog.Logger
}

func NewCachedRenewalTokenRepository(next ports.RenewalTokenRepository, client *redis.Client, log zerolog.Logger) *CachedRenewalTokenRepository {
	return &CachedRenewalTokenRepository{
		next:   next,
		client: client,
		now:    time.Now,
		log:    log.With().Str("component", "renewal_cache").Logger(),
	}
}

func (c *CachedRenewalTokenRepository) Create(ctx context.Context, t *domain.RenewalToken) error {
	if err := c.next.Create(ctx, t); err != nil {
		return err
	}
	c.store(ctx, t)
	return nil
}

func (c *CachedRenewalTokenRepository) Find(ctx context.Context, token string) (*domain.RenewalToken, error) {
	raw, err := c.client.Get(ctx, key(token)).Result()
	switch {
	case err == nil:
		if t, decErr := decodeEntry(token, raw); decErr == nil {
			return t, nil
		}
		c.log.Warn().Msg("discarding malformed renewal cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Msg("renewal cache read failed")
	}

	t, err := c.next.Find(ctx, token)
	if err != nil {
		return nil, err
	}
	c.store(ctx, t)
	return t, nil
}

func (c *CachedRenewalTokenRepository) UpdateExpiration(ctx context.Context, token string, expiresAt time.Time) error {
	if err := c.next.UpdateExpiration(ctx, token, expiresAt); err != nil {
		return err
	}
	c.forget(ctx, token)
	return nil
}

func (c *CachedRenewalTokenRepository) Delete(ctx context.Context, token string) error {
	if err := c.next.Delete(ctx, token); err != nil {
		return err
	}
	c.forget(ctx, token)
	return nil
}

// DeleteByOwner cannot address cache keys by owner, so it scans them.
func (c *CachedRenewalTokenRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	if err := c.next.DeleteByOwner(ctx, ownerID); err != nil {
		return err
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		raw, err := c.client.Get(ctx, k).Result()
		if err != nil {
			continue
		}
		if owner, _, ok := strings.Cut(raw, "|"); ok && owner == ownerID {
			if err := c.client.Del(ctx, k).Err(); err != nil {
				c.log.Warn().Err(err).Str("owner_id", ownerID).Msg("renewal cache delete failed")
			}
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Warn().Err(err).Str("owner_id", ownerID).Msg("renewal cache scan failed")
	}
	return nil
}

// DeleteExpired only touches the durable store; cache entries expire by TTL.
func (c *CachedRenewalTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return c.next.DeleteExpired(ctx, before)
}

func (c *CachedRenewalTokenRepository) store(ctx context.Context, t *domain.RenewalToken) {
	ttl := t.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, key(t.Token), encodeEntry(t), ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("renewal cache write failed")
	}
}

func (c *CachedRenewalTokenRepository) forget(ctx context.Context, token string) {
	if err := c.client.Del(ctx, key(token)).Err(); err != nil {
		c.log.Warn().Err(err).Msg("renewal cache delete failed")
	}
}

func key(token string) string {
	return keyPrefix + tokenhash.Sum(token)
}

func encodeEntry(t *domain.RenewalToken) string {
	return fmt.Sprintf("%s|%d|%d", t.OwnerID, t.ExpiresAt.UnixMilli(), t.CreatedAt.UnixMilli())
}

func decodeEntry(token, raw string) (*domain.RenewalToken, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 3 || parts[0] == "" {
		return nil, fmt.Errorf("renewal cache: malformed entry")
	}
	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("renewal cache: %w", err)
	}
	created, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("renewal cache: %w", err)
	}
	return &domain.RenewalToken{
		OwnerID:   parts[0],
		Token:     token,
		ExpiresAt: time.UnixMilli(expires).UTC(),
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}
