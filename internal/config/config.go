package config

import "time"

const (
	defaultPort            = "4000"
	defaultProvider        = "fixture"
	defaultUpstreamURL     = "http://localhost:8080/api/matches"
	defaultUpstreamTimeout = 10 * time.Second
	defaultUpstreamRetries = 2
	defaultUpstreamRate    = 5.0
	defaultUpstreamBurst   = 10
	defaultPushInterval    = 5 * time.Second
	defaultPingInterval    = 25 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultCacheSize       = 256
)

// Config holds runtime configuration for the server.
type Config struct {
	Port      string `env:"PORT" envDefault:"4000"`
	Provider  string `env:"PROVIDER" envDefault:"fixture"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	Upstream  UpstreamConfig
	Push      PushConfig
	Metrics   MetricsConfig
}

// UpstreamConfig controls how the proxy reaches the upstream matches API.
type UpstreamConfig struct {
	URL        string        `env:"UPSTREAM_URL" envDefault:"http://localhost:8080/api/matches"`
	Timeout    time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	RetryMax   int           `env:"UPSTREAM_RETRY_MAX" envDefault:"2"`
	RatePerSec float64       `env:"UPSTREAM_RATE" envDefault:"5"`
	Burst      int           `env:"UPSTREAM_BURST" envDefault:"10"`
}

// PushConfig controls the websocket push endpoint.
type PushConfig struct {
	Interval     time.Duration `env:"PUSH_INTERVAL" envDefault:"5s"`
	PingInterval time.Duration `env:"PUSH_PING_INTERVAL" envDefault:"25s"`
	PongWait     time.Duration `env:"PUSH_PONG_WAIT" envDefault:"60s"`
	CacheSize    int           `env:"SNAPSHOT_CACHE_SIZE" envDefault:"256"`
}

// Load reads configuration from environment variables. Malformed values are
// reported as errors; non-positive values fall back to defaults.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Port = stringOrDefault(c.Port, defaultPort)
	c.Provider = stringOrDefault(c.Provider, defaultProvider)
	c.Upstream.URL = stringOrDefault(c.Upstream.URL, defaultUpstreamURL)
	c.Upstream.Timeout = durationOrDefault(c.Upstream.Timeout, defaultUpstreamTimeout)
	if c.Upstream.RetryMax < 0 {
		c.Upstream.RetryMax = defaultUpstreamRetries
	}
	if c.Upstream.RatePerSec <= 0 {
		c.Upstream.RatePerSec = defaultUpstreamRate
	}
	c.Upstream.Burst = intOrDefault(c.Upstream.Burst, defaultUpstreamBurst)
	c.Push.Interval = durationOrDefault(c.Push.Interval, defaultPushInterval)
	c.Push.PingInterval = durationOrDefault(c.Push.PingInterval, defaultPingInterval)
	c.Push.PongWait = durationOrDefault(c.Push.PongWait, defaultPongWait)
	if c.Push.PongWait <= c.Push.PingInterval {
		c.Push.PongWait = 2 * c.Push.PingInterval
	}
	c.Push.CacheSize = intOrDefault(c.Push.CacheSize, defaultCacheSize)
	c.Metrics.normalize()
}
