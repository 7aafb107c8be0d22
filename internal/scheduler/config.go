package scheduler

import (
	"time"

	"github.com/smallbiznis/sitebuilder/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled       bool
	RunInterval   time.Duration
	BatchSize     int
	JobTimeout    time.Duration
	LockTTL       time.Duration
	// PendingExpiry applies when no storefront rules are loaded.
	PendingExpiry time.Duration
	EnabledJobs   []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		RunInterval:   5 * time.Minute,
		BatchSize:     50,
		JobTimeout:    30 * time.Second,
		LockTTL:       time.Minute,
		PendingExpiry: 24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.PendingExpiry <= 0 {
		c.PendingExpiry = defaults.PendingExpiry
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.Scheduler.Enabled,
		RunInterval: cfg.Scheduler.RunInterval,
	}.withDefaults()
}
