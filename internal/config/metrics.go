package config

const (
	defaultMetricsPort = "9090"
	defaultServiceName = "live-matches"
)

// MetricsConfig controls telemetry export settings.
type MetricsConfig struct {
	Enabled      bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Port         string `env:"METRICS_PORT" envDefault:"9090"`
	OtlpEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"live-matches"`
	OtlpInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
}

func (m *MetricsConfig) normalize() {
	m.Port = stringOrDefault(m.Port, defaultMetricsPort)
	m.ServiceName = stringOrDefault(m.ServiceName, defaultServiceName)
}
