package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TABLEWISE_APP_ENV", "development")
	t.Setenv("TABLEWISE_APP_PORT", "8080")
	t.Setenv("TABLEWISE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("TABLEWISE_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("TABLEWISE_JWT_SECRET", "secret")
	t.Setenv("TABLEWISE_JWT_ISSUER", "tablewise")
}

func TestLoadAppliesPricingDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.True(t, cfg.Pricing.TaxRate.Equal(decimal.RequireFromString("0.08")))
	require.True(t, cfg.Pricing.FreeDeliveryThreshold.Equal(decimal.RequireFromString("30.00")))
	require.True(t, cfg.Pricing.DeliveryFee.Equal(decimal.RequireFromString("3.99")))
	require.True(t, cfg.App.IsDev())
}

func TestLoadRejectsTaxRateOutOfRange(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TABLEWISE_PRICING_TAX_RATE", "1.25")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadUsesBuiltInPromoCatalogWhenUnset(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Promos.Entries)

	var welcome *PromoEntry
	for i := range cfg.Promos.Entries {
		if cfg.Promos.Entries[i].Code == "WELCOME10" {
			welcome = &cfg.Promos.Entries[i]
		}
	}
	require.NotNil(t, welcome)
	require.True(t, welcome.DiscountRate.Equal(decimal.RequireFromString("0.10")))
}

func TestLoadParsesPromoCatalogJSON(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TABLEWISE_PROMO_CATALOG", `[{"code":"LUNCH5","discount_rate":"0.05","description":"5% off lunch","minimum_order_subtotal":"10.00"}]`)

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Promos.Entries, 1)
	require.Equal(t, "LUNCH5", cfg.Promos.Entries[0].Code)
	require.True(t, cfg.Promos.Entries[0].MinimumOrderSubtotal.Equal(decimal.RequireFromString("10.00")))
}

func TestLoadRejectsPromoRateOutOfRange(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TABLEWISE_PROMO_CATALOG", `[{"code":"BAD","discount_rate":"1.5","description":"","minimum_order_subtotal":"0"}]`)

	_, err := Load()
	require.Error(t, err)
}
