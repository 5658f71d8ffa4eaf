package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CheckoutConfig holds the checkout settings that can change without a restart.
type CheckoutConfig struct {
	MaxQuantity int    `mapstructure:"maxQuantity"`
	SuccessPath string `mapstructure:"successPath"`
	CancelPath  string `mapstructure:"cancelPath"`
	Currency    string `mapstructure:"currency"`
}

func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		MaxQuantity: 10,
		SuccessPath: "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelPath:  "/checkout/cancel",
		Currency:    "usd",
	}
}

type CheckoutConfigHolder struct {
	current atomic.Value // holds CheckoutConfig
}

// NewStaticCheckoutConfigHolder returns a holder pinned to cfg.
func NewStaticCheckoutConfigHolder(cfg CheckoutConfig) *CheckoutConfigHolder {
	holder := &CheckoutConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewCheckoutConfigHolder() (*CheckoutConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("checkout")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/popstore/config")
	v.AddConfigPath("/etc/popstore")
	v.AddConfigPath(".")

	v.SetEnvPrefix("POPSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCheckoutConfig()
	v.SetDefault("checkout.maxQuantity", defaults.MaxQuantity)
	v.SetDefault("checkout.successPath", defaults.SuccessPath)
	v.SetDefault("checkout.cancelPath", defaults.CancelPath)
	v.SetDefault("checkout.currency", defaults.Currency)

	found := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		found = false
	}

	var cfg CheckoutConfig
	if err := v.UnmarshalKey("checkout", &cfg); err != nil {
		return nil, err
	}
	if err := validateCheckoutConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticCheckoutConfigHolder(cfg)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CheckoutConfig
		if err := v.UnmarshalKey("checkout", &updated); err != nil {
			log.Printf("[checkout-config] reload failed: %v", err)
			return
		}
		if err := validateCheckoutConfig(updated); err != nil {
			log.Printf("[checkout-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[checkout-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *CheckoutConfigHolder) Get() CheckoutConfig {
	return h.current.Load().(CheckoutConfig)
}

func validateCheckoutConfig(cfg CheckoutConfig) error {
	if cfg.MaxQuantity < 1 {
		return errors.New("checkout.maxQuantity must be at least 1")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("checkout.currency cannot be empty")
	}
	return nil
}
