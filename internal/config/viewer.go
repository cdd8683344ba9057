package config

import "time"

const (
	defaultAPIURL          = "http://localhost:4000"
	defaultPollInterval    = 7 * time.Second
	defaultHighlightWindow = time.Second
	defaultFetchTimeout    = 10 * time.Second
	defaultMaxRetries      = 3
	defaultRetryBase       = time.Second
	defaultReconnects      = 5
	defaultReconnectDelay  = time.Second
	defaultSessionTTL      = 24 * time.Hour
	defaultSessionPath     = "live-matches.db"
)

// ViewerConfig holds runtime configuration for the terminal viewer.
type ViewerConfig struct {
	APIURL           string        `env:"LIVE_MATCHES_API_URL" envDefault:"http://localhost:4000"`
	PushURL          string        `env:"LIVE_MATCHES_PUSH_URL"`
	PushEnabled      bool          `env:"LIVE_MATCHES_PUSH_ENABLED" envDefault:"true"`
	PollInterval     time.Duration `env:"LIVE_MATCHES_POLL_INTERVAL" envDefault:"7s"`
	HighlightWindow  time.Duration `env:"LIVE_MATCHES_HIGHLIGHT_WINDOW" envDefault:"1s"`
	FetchTimeout     time.Duration `env:"LIVE_MATCHES_FETCH_TIMEOUT" envDefault:"10s"`
	MaxRetries       int           `env:"LIVE_MATCHES_MAX_RETRIES" envDefault:"3"`
	RetryBase        time.Duration `env:"LIVE_MATCHES_RETRY_BASE" envDefault:"1s"`
	Reconnects       int           `env:"LIVE_MATCHES_PUSH_RECONNECTS" envDefault:"5"`
	ReconnectDelay   time.Duration `env:"LIVE_MATCHES_PUSH_RECONNECT_DELAY" envDefault:"1s"`
	PingInterval     time.Duration `env:"LIVE_MATCHES_PUSH_PING_INTERVAL" envDefault:"25s"`
	PongWait         time.Duration `env:"LIVE_MATCHES_PUSH_PONG_WAIT" envDefault:"60s"`
	SuppressFirstHit bool          `env:"LIVE_MATCHES_SUPPRESS_INITIAL_HIGHLIGHT" envDefault:"false"`
	SessionPath      string        `env:"LIVE_MATCHES_SESSION_DB" envDefault:"live-matches.db"`
	SessionTTL       time.Duration `env:"LIVE_MATCHES_SESSION_TTL" envDefault:"24h"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadViewer reads viewer configuration from environment variables.
func LoadViewer() (ViewerConfig, error) {
	var cfg ViewerConfig
	if err := ParseEnv(&cfg); err != nil {
		return ViewerConfig{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *ViewerConfig) normalize() {
	c.APIURL = stringOrDefault(c.APIURL, defaultAPIURL)
	c.PollInterval = durationOrDefault(c.PollInterval, defaultPollInterval)
	c.HighlightWindow = durationOrDefault(c.HighlightWindow, defaultHighlightWindow)
	c.FetchTimeout = durationOrDefault(c.FetchTimeout, defaultFetchTimeout)
	c.MaxRetries = intOrDefault(c.MaxRetries, defaultMaxRetries)
	c.RetryBase = durationOrDefault(c.RetryBase, defaultRetryBase)
	c.Reconnects = intOrDefault(c.Reconnects, defaultReconnects)
	c.ReconnectDelay = durationOrDefault(c.ReconnectDelay, defaultReconnectDelay)
	c.PingInterval = durationOrDefault(c.PingInterval, defaultPingInterval)
	c.PongWait = durationOrDefault(c.PongWait, defaultPongWait)
	c.SessionPath = stringOrDefault(c.SessionPath, defaultSessionPath)
	c.SessionTTL = durationOrDefault(c.SessionTTL, defaultSessionTTL)
}
