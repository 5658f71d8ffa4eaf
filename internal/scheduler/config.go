package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/popstore/internal/config"
)

// Config controls the settlement sweep.
type Config struct {
	Enabled     bool
	Schedule    string
	GracePeriod time.Duration
	BatchSize   int
	RunTimeout  time.Duration
	LockTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Schedule:    "@every 1m",
		GracePeriod: 2 * time.Minute,
		BatchSize:   100,
		RunTimeout:  45 * time.Second,
		LockTTL:     55 * time.Second,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.Sweeper.Enabled,
		Schedule:    cfg.Sweeper.Schedule,
		GracePeriod: cfg.Sweeper.GracePeriod,
		BatchSize:   cfg.Sweeper.BatchSize,
		RunTimeout:  cfg.Sweeper.RunTimeout,
		LockTTL:     cfg.Sweeper.LockTTL,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.Schedule) == "" {
		c.Schedule = defaults.Schedule
	}
	if c.GracePeriod < 0 {
		c.GracePeriod = 0
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
