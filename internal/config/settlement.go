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

// SettlementConfig tunes the settlement coordinator and sweeper without a
// redeploy. Values apply to new operations; in-flight operations keep the
// deadlines they started with.
type SettlementConfig struct {
	GracePeriod      time.Duration `mapstructure:"gracePeriod"`
	SweepInterval    time.Duration `mapstructure:"sweepInterval"`
	MaxSweepAttempts int           `mapstructure:"maxSweepAttempts"`
	SweepBatchSize   int           `mapstructure:"sweepBatchSize"`
}

func DefaultSettlementConfig() SettlementConfig {
	return SettlementConfig{
		GracePeriod:      2 * time.Minute,
		SweepInterval:    30 * time.Second,
		MaxSweepAttempts: 20,
		SweepBatchSize:   50,
	}
}

type SettlementConfigHolder struct {
	current atomic.Value // holds SettlementConfig
}

func NewSettlementConfigHolder() (*SettlementConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("settlement")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/stellapay/config")
	v.AddConfigPath("/etc/stellapay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STELLAPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultSettlementConfig()
		v.SetDefault("settlement.gracePeriod", defaults.GracePeriod)
		v.SetDefault("settlement.sweepInterval", defaults.SweepInterval)
		v.SetDefault("settlement.maxSweepAttempts", defaults.MaxSweepAttempts)
		v.SetDefault("settlement.sweepBatchSize", defaults.SweepBatchSize)
	}

	var cfg SettlementConfig
	if err := v.UnmarshalKey("settlement", &cfg); err != nil {
		return nil, err
	}
	if err := validateSettlementConfig(cfg); err != nil {
		return nil, err
	}

	holder := &SettlementConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SettlementConfig
		if err := v.UnmarshalKey("settlement", &updated); err != nil {
			log.Printf("[settlement-config] reload failed: %v", err)
			return
		}
		if err := validateSettlementConfig(updated); err != nil {
			log.Printf("[settlement-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[settlement-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticSettlementHolder wraps a fixed config with no file watching.
func NewStaticSettlementHolder(cfg SettlementConfig) *SettlementConfigHolder {
	holder := &SettlementConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *SettlementConfigHolder) Get() SettlementConfig {
	return h.current.Load().(SettlementConfig)
}

func validateSettlementConfig(cfg SettlementConfig) error {
	if cfg.GracePeriod <= 0 {
		return errors.New("settlement.gracePeriod must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("settlement.sweepInterval must be positive")
	}
	if cfg.MaxSweepAttempts <= 0 {
		return errors.New("settlement.maxSweepAttempts must be positive")
	}
	if cfg.SweepBatchSize <= 0 {
		return errors.New("settlement.sweepBatchSize must be positive")
	}
	return nil
}
