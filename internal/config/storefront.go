package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// StorefrontConfig holds operational rules for the public storefront that can change without a redeploy.
type StorefrontConfig struct {
	MaxProofBytes        int64         `mapstructure:"maxProofBytes"`
	ProofMimePrefix      string        `mapstructure:"proofMimePrefix"`
	MaxUploadBytes       int64         `mapstructure:"maxUploadBytes"`
	PendingPaymentExpiry time.Duration `mapstructure:"pendingPaymentExpiry"`
	RateLimit            RateLimitRule `mapstructure:"rateLimit"`
}

type RateLimitRule struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`
	Burst   int     `mapstructure:"burst"`
}

func DefaultStorefrontConfig() StorefrontConfig {
	return StorefrontConfig{
		MaxProofBytes:        5 << 20,
		ProofMimePrefix:      "image/",
		MaxUploadBytes:       10 << 20,
		PendingPaymentExpiry: 24 * time.Hour,
		RateLimit: RateLimitRule{
			Enabled: true,
			Rate:    0.5,
			Burst:   10,
		},
	}
}

type StorefrontConfigHolder struct {
	current atomic.Value // holds StorefrontConfig
}

// NewStaticStorefrontConfigHolder returns a holder pinned to cfg. Used by tests and tools.
func NewStaticStorefrontConfigHolder(cfg StorefrontConfig) *StorefrontConfigHolder {
	holder := &StorefrontConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewStorefrontConfigHolder() (*StorefrontConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("storefront")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/sitebuilder")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SITEBUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultStorefrontConfig()
	v.SetDefault("storefront.maxProofBytes", defaults.MaxProofBytes)
	v.SetDefault("storefront.proofMimePrefix", defaults.ProofMimePrefix)
	v.SetDefault("storefront.maxUploadBytes", defaults.MaxUploadBytes)
	v.SetDefault("storefront.pendingPaymentExpiry", defaults.PendingPaymentExpiry)
	v.SetDefault("storefront.rateLimit.enabled", defaults.RateLimit.Enabled)
	v.SetDefault("storefront.rateLimit.rate", defaults.RateLimit.Rate)
	v.SetDefault("storefront.rateLimit.burst", defaults.RateLimit.Burst)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg StorefrontConfig
	if err := v.UnmarshalKey("storefront", &cfg); err != nil {
		return nil, err
	}
	if err := validateStorefrontConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticStorefrontConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated StorefrontConfig
		if err := v.UnmarshalKey("storefront", &updated); err != nil {
			log.Printf("[storefront-config] reload failed: %v", err)
			return
		}
		if err := validateStorefrontConfig(updated); err != nil {
			log.Printf("[storefront-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[storefront-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *StorefrontConfigHolder) Get() StorefrontConfig {
	if h == nil {
		return DefaultStorefrontConfig()
	}
	return h.current.Load().(StorefrontConfig)
}

func validateStorefrontConfig(cfg StorefrontConfig) error {
	if cfg.MaxProofBytes <= 0 {
		return errors.New("storefront.maxProofBytes must be positive")
	}
	if strings.TrimSpace(cfg.ProofMimePrefix) == "" {
		return errors.New("storefront.proofMimePrefix cannot be empty")
	}
	if cfg.MaxUploadBytes <= 0 {
		return errors.New("storefront.maxUploadBytes must be positive")
	}
	if cfg.PendingPaymentExpiry <= 0 {
		return errors.New("storefront.pendingPaymentExpiry must be positive")
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.Rate <= 0 || cfg.RateLimit.Burst <= 0) {
		return errors.New("storefront.rateLimit requires positive rate and burst")
	}
	return nil
}
