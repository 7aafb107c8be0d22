package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStorefrontConfigIsValid(t *testing.T) {
	cfg := DefaultStorefrontConfig()
	require.NoError(t, validateStorefrontConfig(cfg))
	assert.Equal(t, int64(5<<20), cfg.MaxProofBytes)
	assert.Equal(t, "image/", cfg.ProofMimePrefix)
	assert.Equal(t, 24*time.Hour, cfg.PendingPaymentExpiry)
}

func TestValidateStorefrontConfigRejectsBrokenRules(t *testing.T) {
	cases := map[string]func(*StorefrontConfig){
		"proof size":  func(c *StorefrontConfig) { c.MaxProofBytes = 0 },
		"mime prefix": func(c *StorefrontConfig) { c.ProofMimePrefix = " " },
		"upload size": func(c *StorefrontConfig) { c.MaxUploadBytes = -1 },
		"expiry":      func(c *StorefrontConfig) { c.PendingPaymentExpiry = 0 },
		"rate limit":  func(c *StorefrontConfig) { c.RateLimit.Burst = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultStorefrontConfig()
			mutate(&cfg)
			assert.Error(t, validateStorefrontConfig(cfg))
		})
	}
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *StorefrontConfigHolder
	assert.Equal(t, DefaultStorefrontConfig(), holder.Get())
}

func TestGetenvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, getenvDuration("TEST_DURATION", time.Minute))
	t.Setenv("TEST_DURATION", "garbage")
	assert.Equal(t, time.Minute, getenvDuration("TEST_DURATION", time.Minute))
}
