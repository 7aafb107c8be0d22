package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/sitebuilder/internal/config"
)

const keyStorefront = "storefront:rl:%s:%s"

// StorefrontLimiter throttles public write endpoints per client address.
type StorefrontLimiter struct {
	bucket *TokenBucket
	rules  *config.StorefrontConfigHolder
}

func NewStorefrontLimiter(client *redis.Client, rules *config.StorefrontConfigHolder) *StorefrontLimiter {
	return &StorefrontLimiter{
		bucket: NewTokenBucket(client),
		rules:  rules,
	}
}

// Enabled reports whether limits are enforced with the current rules.
func (l *StorefrontLimiter) Enabled() bool {
	if l == nil || l.bucket == nil || l.rules == nil {
		return false
	}
	rule := l.rules.Get().RateLimit
	return rule.Enabled && rule.Rate > 0 && rule.Burst > 0
}

// Allow consumes one token for endpoint and client. Disabled limiters always allow.
func (l *StorefrontLimiter) Allow(ctx context.Context, endpoint, client string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	rule := l.rules.Get().RateLimit
	return l.bucket.Allow(ctx, Key(endpoint, client), rule.Rate, rule.Burst)
}

// Key builds the bucket key for an endpoint and client address.
func Key(endpoint, client string) string {
	endpoint = strings.Trim(strings.ReplaceAll(strings.TrimSpace(endpoint), "/", ":"), ":")
	if endpoint == "" {
		endpoint = "root"
	}
	client = strings.TrimSpace(client)
	if client == "" {
		client = "unknown"
	}
	return fmt.Sprintf(keyStorefront, endpoint, client)
}
