package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/sitebuilder/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "storefront:rl:orders:10.0.0.1", Key("/orders", "10.0.0.1"))
	assert.Equal(t, "storefront:rl:payment:confirm:unknown", Key("/payment/confirm/", ""))
	assert.Equal(t, "storefront:rl:root:1.1.1.1", Key("/", "1.1.1.1"))
}

func TestStorefrontLimiterWithoutRedisAllows(t *testing.T) {
	limiter := NewStorefrontLimiter(nil, config.NewStaticStorefrontConfigHolder(config.DefaultStorefrontConfig()))
	assert.False(t, limiter.Enabled())

	res, err := limiter.Allow(context.Background(), "/orders", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNilHelpers(t *testing.T) {
	assert.Nil(t, NewTokenBucket(nil))
	assert.Nil(t, NewLocker(nil))

	var locker *Locker
	_, _, err := locker.TryLock(context.Background(), "k", time.Second)
	assert.Error(t, err)
	assert.NoError(t, locker.Release(context.Background(), "k", "t"))

	var bucket *TokenBucket
	res, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
	assert.False(t, res.Allowed)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 40*time.Second, defaultBucketTTL(0.5, 10))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 0))
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(3), castToInt(int64(3)))
	assert.Equal(t, int64(2), castToInt(2.9))
	assert.Equal(t, 1.5, castToFloat("1.5"))
	assert.Equal(t, 0.0, castToFloat(nil))
}

func TestTakeRejectsInvalidInput(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Take(context.Background(), "k", Rule{Rate: 1, Burst: 1})
	assert.ErrorIs(t, err, ErrLimiterDisabled)

	assert.False(t, Rule{Rate: 1}.valid())
	assert.True(t, Rule{Rate: 1, Burst: 1}.valid())
}
