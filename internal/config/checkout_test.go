package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateCheckoutConfig(t *testing.T) {
	require.NoError(t, validateCheckoutConfig(DefaultCheckoutConfig()))

	cfg := DefaultCheckoutConfig()
	cfg.MaxQuantity = 0
	require.Error(t, validateCheckoutConfig(cfg))

	cfg = DefaultCheckoutConfig()
	cfg.Currency = " "
	require.Error(t, validateCheckoutConfig(cfg))
}

func TestStaticCheckoutConfigHolder(t *testing.T) {
	cfg := DefaultCheckoutConfig()
	cfg.MaxQuantity = 3
	holder := NewStaticCheckoutConfigHolder(cfg)
	require.Equal(t, 3, holder.Get().MaxQuantity)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SWEEPER_SCHEDULE", "")
	t.Setenv("WEBHOOK_SIGNATURE_TOLERANCE", "not-a-duration")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()
	require.Equal(t, "@every 1m", cfg.Sweeper.Schedule)
	require.Equal(t, "5m0s", cfg.Webhook.SignatureTolerance.String())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}
