package alert

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

const (
	MarkerBackendPostgres = "postgres"
	MarkerBackendRedis    = "redis"
	MarkerBackendMemory   = "memory"
)

type Config struct {
	Cooldown            time.Duration `env:"ALERT_COOLDOWN" envDefault:"1h"`
	CycleTimeout        time.Duration `env:"ALERT_CYCLE_TIMEOUT" envDefault:"5m"`
	Lookback            time.Duration `env:"ALERT_LOOKBACK" envDefault:"25h"`
	Concurrency         int           `env:"ALERT_EVALUATION_CONCURRENCY" envDefault:"8"`
	ConstantFlowSamples int           `env:"ALERT_CONSTANT_FLOW_SAMPLES" envDefault:"5"`
	ConstantFlowSpan    time.Duration `env:"ALERT_CONSTANT_FLOW_SPAN" envDefault:"80m"`
	NotReportingAfter   time.Duration `env:"ALERT_NOT_REPORTING_AFTER" envDefault:"24h"`

	MarkerBackend string `env:"ALERT_MARKER_BACKEND" envDefault:"postgres"`
	RedisAddr     string `env:"ALERT_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"ALERT_REDIS_PASSWORD,unset"`
	RedisDB       int    `env:"ALERT_REDIS_DB" envDefault:"0"`
	RedisKey      string `env:"ALERT_REDIS_KEY" envDefault:"alert:cycle:marker"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, env.Options{}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		Cooldown:            time.Hour,
		CycleTimeout:        5 * time.Minute,
		Lookback:            25 * time.Hour,
		Concurrency:         8,
		ConstantFlowSamples: 5,
		ConstantFlowSpan:    80 * time.Minute,
		NotReportingAfter:   24 * time.Hour,
		MarkerBackend:       MarkerBackendMemory,
	}
}

func (c Config) Validate() error {
	if c.Cooldown < 0 {
		return fmt.Errorf("ALERT_COOLDOWN must not be negative, got %s", c.Cooldown)
	}
	// the marker write at the end of a cycle has to fit inside the lease
	if c.CycleTimeout <= markerWriteTimeout {
		return fmt.Errorf("ALERT_CYCLE_TIMEOUT must be longer than %s, got %s", markerWriteTimeout, c.CycleTimeout)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("ALERT_EVALUATION_CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	if c.ConstantFlowSamples < 1 {
		return fmt.Errorf("ALERT_CONSTANT_FLOW_SAMPLES must be at least 1, got %d", c.ConstantFlowSamples)
	}
	// an empty window falls back to the registration time, so the window
	// has to cover the silence threshold as well
	if c.Lookback < c.ConstantFlowSpan || c.Lookback < c.NotReportingAfter {
		return fmt.Errorf("ALERT_LOOKBACK %s must cover both ALERT_CONSTANT_FLOW_SPAN %s and ALERT_NOT_REPORTING_AFTER %s",
			c.Lookback, c.ConstantFlowSpan, c.NotReportingAfter)
	}
	switch c.MarkerBackend {
	case MarkerBackendPostgres, MarkerBackendRedis, MarkerBackendMemory:
	default:
		return fmt.Errorf("unknown ALERT_MARKER_BACKEND %q", c.MarkerBackend)
	}
	return nil
}

func (c Config) Thresholds() Thresholds {
	return Thresholds{
		ConstantFlowSamples: c.ConstantFlowSamples,
		ConstantFlowSpan:    c.ConstantFlowSpan,
		NotReportingAfter:   c.NotReportingAfter,
	}
}
