package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App     AppConfig
	Pricing PricingConfig
	Promos  PromosConfig
	Session SessionConfig
	Redis   RedisConfig
	Mongo   MongoConfig
	JWT     JWTConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Promos.parse(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TABLEWISE_APP_ENV" required:"true"`
	Port         string `envconfig:"TABLEWISE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TABLEWISE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TABLEWISE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PricingConfig holds the checkout rate constants. They are configuration,
// not call-site literals, so a deployment can vary them in one place.
type PricingConfig struct {
	TaxRate               decimal.Decimal `envconfig:"TABLEWISE_PRICING_TAX_RATE" default:"0.08"`
	FreeDeliveryThreshold decimal.Decimal `envconfig:"TABLEWISE_PRICING_FREE_DELIVERY_THRESHOLD" default:"30.00"`
	DeliveryFee           decimal.Decimal `envconfig:"TABLEWISE_PRICING_DELIVERY_FEE" default:"3.99"`
}

func (p PricingConfig) validate() error {
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be in [0,1)")
	}
	if p.FreeDeliveryThreshold.IsNegative() {
		return fmt.Errorf("free delivery threshold must be non-negative")
	}
	if p.DeliveryFee.IsNegative() {
		return fmt.Errorf("delivery fee must be non-negative")
	}
	return nil
}

// PromoEntry is one row of the closed promo catalog.
type PromoEntry struct {
	Code                 string          `json:"code"`
	DiscountRate         decimal.Decimal `json:"discount_rate"`
	Description          string          `json:"description"`
	MinimumOrderSubtotal decimal.Decimal `json:"minimum_order_subtotal"`
}

// PromosConfig carries the static promo catalog. The catalog is supplied as a
// JSON array in the environment; when unset the built-in table applies.
type PromosConfig struct {
	CatalogJSON string `envconfig:"TABLEWISE_PROMO_CATALOG"`

	Entries []PromoEntry `ignored:"true"`
}

var defaultPromoEntries = []PromoEntry{
	{Code: "WELCOME10", DiscountRate: decimal.RequireFromString("0.10"), Description: "10% off your first order", MinimumOrderSubtotal: decimal.RequireFromString("20.00")},
	{Code: "SAVE15", DiscountRate: decimal.RequireFromString("0.15"), Description: "15% off orders over $50", MinimumOrderSubtotal: decimal.RequireFromString("50.00")},
	{Code: "FEAST20", DiscountRate: decimal.RequireFromString("0.20"), Description: "20% off family feasts", MinimumOrderSubtotal: decimal.RequireFromString("75.00")},
}

func (p *PromosConfig) parse() error {
	if strings.TrimSpace(p.CatalogJSON) == "" {
		p.Entries = defaultPromoEntries
		return nil
	}
	var entries []PromoEntry
	if err := json.Unmarshal([]byte(p.CatalogJSON), &entries); err != nil {
		return fmt.Errorf("parsing promo catalog: %w", err)
	}
	for _, entry := range entries {
		if strings.TrimSpace(entry.Code) == "" {
			return fmt.Errorf("promo catalog entry missing code")
		}
		if entry.DiscountRate.IsNegative() || entry.DiscountRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("promo %s: discount rate must be in [0,1)", entry.Code)
		}
		if entry.MinimumOrderSubtotal.IsNegative() {
			return fmt.Errorf("promo %s: minimum order subtotal must be non-negative", entry.Code)
		}
	}
	p.Entries = entries
	return nil
}

// SessionConfig governs the per-session cart engine lifecycle.
type SessionConfig struct {
	CartTTL      time.Duration `envconfig:"TABLEWISE_SESSION_CART_TTL" default:"12h"`
	EngineIdle   time.Duration `envconfig:"TABLEWISE_SESSION_ENGINE_IDLE" default:"30m"`
	SweepEvery   time.Duration `envconfig:"TABLEWISE_SESSION_SWEEP_INTERVAL" default:"5m"`
	WriteBacklog int           `envconfig:"TABLEWISE_SESSION_WRITE_BACKLOG" default:"64"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TABLEWISE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TABLEWISE_REDIS_ADDR"`
	Password     string        `envconfig:"TABLEWISE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TABLEWISE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TABLEWISE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TABLEWISE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TABLEWISE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TABLEWISE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TABLEWISE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type MongoConfig struct {
	URI            string        `envconfig:"TABLEWISE_MONGO_URI" required:"true"`
	Database       string        `envconfig:"TABLEWISE_MONGO_DATABASE" default:"tablewise"`
	CartCollection string        `envconfig:"TABLEWISE_MONGO_CART_COLLECTION" default:"carts"`
	ConnectTimeout time.Duration `envconfig:"TABLEWISE_MONGO_CONNECT_TIMEOUT" default:"10s"`
	OpTimeout      time.Duration `envconfig:"TABLEWISE_MONGO_OP_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"TABLEWISE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"TABLEWISE_JWT_ISSUER" required:"true"`
}
