package sweeper

import "time"

// Config controls the sweep loop itself. Settlement tunables (grace period,
// batch size, attempt budget) live in the hot-reloadable settlement config.
type Config struct {
	RunTimeout time.Duration
	LockKey    string
	LockTTL    time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunTimeout: 30 * time.Second,
		LockKey:    "stellapay:sweeper:run",
		LockTTL:    time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.LockKey == "" {
		c.LockKey = defaults.LockKey
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
