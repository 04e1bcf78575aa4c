package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reference generator kinds accepted by REFERENCE_GENERATOR.
const (
	ReferenceUUID  = "uuid"
	ReferenceRedis = "redis"
)

// Config captures process level configuration.
type Config struct {
	Addr             string
	LogLevel         string
	ReferenceKind    string
	BatchConcurrency int
	ShutdownTimeout  time.Duration
	Redis            RedisConfig
	Policy           PolicyOverrides
}

// RedisConfig holds connection settings for the reference sequence store.
// An empty URL means Redis is not configured.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PolicyOverrides carries rule table values set in the environment. Nil
// fields keep the built-in default.
type PolicyOverrides struct {
	MobileDiscountRate    *decimal.Decimal
	FXFeeRate             *decimal.Decimal
	NetworkFee            *decimal.Decimal
	LargeAmountMultiplier *decimal.Decimal
	FrequentTravelFactor  *decimal.Decimal
	VelocityThreshold     *int
	FutureSkew            *time.Duration
	StaleAfter            *time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
// Malformed values are reported rather than silently defaulted.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

type lookupFunc func(string) (string, bool)

func fromLookup(lookup lookupFunc) (Config, error) {
	p := parser{lookup: lookup}

	cfg := Config{
		Addr:             p.str("TXGUARD_ADDR", ":8080"),
		LogLevel:         strings.ToLower(p.str("LOG_LEVEL", "info")),
		ReferenceKind:    strings.ToLower(p.str("REFERENCE_GENERATOR", ReferenceUUID)),
		BatchConcurrency: p.integer("BATCH_CONCURRENCY", 8),
		ShutdownTimeout:  p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Redis: RedisConfig{
			URL:          p.str("REDIS_URL", ""),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Policy: PolicyOverrides{
			MobileDiscountRate:    p.optDecimal("POLICY_MOBILE_DISCOUNT_RATE"),
			FXFeeRate:             p.optDecimal("POLICY_FX_FEE_RATE"),
			NetworkFee:            p.optDecimal("POLICY_NETWORK_FEE"),
			LargeAmountMultiplier: p.optDecimal("POLICY_LARGE_AMOUNT_MULTIPLIER"),
			FrequentTravelFactor:  p.optDecimal("POLICY_FREQUENT_TRAVEL_FACTOR"),
			VelocityThreshold:     p.optInteger("POLICY_VELOCITY_THRESHOLD"),
			FutureSkew:            p.optDuration("POLICY_FUTURE_SKEW"),
			StaleAfter:            p.optDuration("POLICY_STALE_AFTER"),
		},
	}
	if p.err != nil {
		return Config{}, p.err
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("LOG_LEVEL: unsupported level %q", cfg.LogLevel)
	}
	switch cfg.ReferenceKind {
	case ReferenceUUID:
	case ReferenceRedis:
		if cfg.Redis.URL == "" {
			return Config{}, fmt.Errorf("REFERENCE_GENERATOR=redis requires REDIS_URL")
		}
	default:
		return Config{}, fmt.Errorf("REFERENCE_GENERATOR: unsupported generator %q", cfg.ReferenceKind)
	}
	if cfg.BatchConcurrency <= 0 {
		return Config{}, fmt.Errorf("BATCH_CONCURRENCY: must be positive")
	}
	return cfg, nil
}

// parser records the first malformed variable and keeps returning defaults
// afterwards so FromEnv reads as a flat list.
type parser struct {
	lookup lookupFunc
	err    error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: invalid value %q: %w", key, v, err)
	}
}

func (p *parser) str(key, def string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	if v := p.optInteger(key); v != nil {
		return *v
	}
	return def
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	if v := p.optDuration(key); v != nil {
		return *v
	}
	return def
}

func (p *parser) optInteger(key string) *int {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return nil
	}
	return &n
}

func (p *parser) optDuration(key string) *time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return nil
	}
	return &d
}

func (p *parser) optDecimal(key string) *decimal.Decimal {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.fail(key, v, err)
		return nil
	}
	return &d
}
