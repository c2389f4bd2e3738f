package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const EnvPrefix = "VISIONKART"

// Env var names used by tests and operational tooling.
const (
	EnvAppEnv           = "VISIONKART_APP_ENV"
	EnvPort             = "VISIONKART_APP_PORT"
	EnvCommerceEndpoint = "VISIONKART_COMMERCE_ENDPOINT"
	EnvCommerceToken    = "VISIONKART_COMMERCE_TOKEN"
	EnvRedisURL         = "VISIONKART_REDIS_URL"
	EnvJWTSecret        = "VISIONKART_JWT_SECRET"
	EnvJWTIssuer        = "VISIONKART_JWT_ISSUER"
)

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App      AppConfig
	Commerce CommerceConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if _, err := cfg.Checkout.ParseShippingRates(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VISIONKART_APP_ENV" required:"true"`
	Port         string `envconfig:"VISIONKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VISIONKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VISIONKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CommerceConfig points at the remote commerce platform's storefront API.
type CommerceConfig struct {
	Endpoint    string        `envconfig:"VISIONKART_COMMERCE_ENDPOINT" required:"true"`
	AccessToken string        `envconfig:"VISIONKART_COMMERCE_TOKEN" required:"true"`
	Timeout     time.Duration `envconfig:"VISIONKART_COMMERCE_TIMEOUT" default:"10s"`
	OrdersLimit int           `envconfig:"VISIONKART_COMMERCE_ORDERS_LIMIT" default:"20"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VISIONKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VISIONKART_REDIS_ADDR"`
	Password     string        `envconfig:"VISIONKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"VISIONKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VISIONKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VISIONKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VISIONKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VISIONKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VISIONKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"VISIONKART_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"VISIONKART_JWT_ISSUER" default:"visionkart"`
}

// CheckoutConfig tunes the checkout flow. ShippingRates is a static rate
// table ("handle=label=amount" entries, comma separated) because the remote
// storefront API exposes no rate query; see internal/commerce.
type CheckoutConfig struct {
	SettleDelay    time.Duration `envconfig:"VISIONKART_CHECKOUT_SETTLE_DELAY" default:"2s"`
	IdempotencyTTL time.Duration `envconfig:"VISIONKART_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
	ShippingRates  string        `envconfig:"VISIONKART_CHECKOUT_SHIPPING_RATES" default:"standard=Standard Shipping=4.90,express=Express Shipping=12.90"`
}

// ShippingRate is one entry of the configured static rate table.
type ShippingRate struct {
	Handle string
	Label  string
	Amount decimal.Decimal
}

// ParseShippingRates decodes the configured rate table.
func (c CheckoutConfig) ParseShippingRates() ([]ShippingRate, error) {
	raw := strings.TrimSpace(c.ShippingRates)
	if raw == "" {
		return nil, fmt.Errorf("at least one shipping rate is required")
	}

	entries := strings.Split(raw, ",")
	rates := make([]ShippingRate, 0, len(entries))
	seen := map[string]struct{}{}
	for _, entry := range entries {
		parts := strings.SplitN(entry, "=", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid shipping rate entry %q", entry)
		}
		handle := strings.TrimSpace(parts[0])
		label := strings.TrimSpace(parts[1])
		if handle == "" || label == "" {
			return nil, fmt.Errorf("invalid shipping rate entry %q", entry)
		}
		if _, ok := seen[handle]; ok {
			return nil, fmt.Errorf("duplicate shipping rate handle %q", handle)
		}
		seen[handle] = struct{}{}

		amount, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("invalid shipping rate amount in %q: %w", entry, err)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("shipping rate %q must be non-negative", handle)
		}
		rates = append(rates, ShippingRate{Handle: handle, Label: label, Amount: amount})
	}
	return rates, nil
}
