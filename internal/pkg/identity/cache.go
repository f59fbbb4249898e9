package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type TokenCache interface {
	GetToken(ctx context.Context, audience string) (string, bool, error)
	SetToken(ctx context.Context, audience, token string, ttl time.Duration) error
}

// RedisCache stores identity tokens keyed by audience.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache connects to addr and gives up when the first ping does not
// answer within timeout.
func NewRedisCache(ctx context.Context, addr string, timeout time.Duration, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisCache{
		client: client,
		logger: logger,
	}, nil
}

func tokenKey(audience string) string {
	return fmt.Sprintf("identity_token:%s", audience)
}

func (c *RedisCache) GetToken(ctx context.Context, audience string) (string, bool, error) {
	val, err := c.client.Get(ctx, tokenKey(audience)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) SetToken(ctx context.Context, audience, token string, ttl time.Duration) error {
	return c.client.Set(ctx, tokenKey(audience), token, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedIssuer serves tokens from cache and falls back to the wrapped issuer.
// Cache errors never fail a request; the token is simply fetched again.
type CachedIssuer struct {
	issuer Issuer
	cache  TokenCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedIssuer(issuer Issuer, cache TokenCache, ttl time.Duration, logger *zap.Logger) *CachedIssuer {
	return &CachedIssuer{
		issuer: issuer,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedIssuer) IdentityToken(ctx context.Context, audience string) (string, error) {
	token, found, err := c.cache.GetToken(ctx, audience)
	if err != nil {
		c.logger.Warn("identity token cache read failed", zap.String("audience", audience), zap.Error(err))
	} else if found {
		return token, nil
	}

	token, err = c.issuer.IdentityToken(ctx, audience)
	if err != nil {
		return "", err
	}

	if err := c.cache.SetToken(ctx, audience, token, c.ttl); err != nil {
		c.logger.Warn("identity token cache write failed", zap.String("audience", audience), zap.Error(err))
	}

	return token, nil
}
