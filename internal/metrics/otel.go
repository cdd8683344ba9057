package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const defaultServiceName = "live-matches"

var (
	promReaderFactory = prometheusComponents
	otlpReaderFactory = buildOTLPReader
	instrumentFactory = newOtelInstruments
)

// TelemetryConfig controls how metrics are exported.
type TelemetryConfig struct {
	Enabled      bool
	Port         string
	ServiceName  string
	OtlpEndpoint string
	OtlpInsecure bool
}

// Setup configures OpenTelemetry metrics with a Prometheus exporter and optional OTLP exporter.
// It returns a Recorder, the Prometheus HTTP handler, and a shutdown function.
func Setup(ctx context.Context, cfg TelemetryConfig) (*Recorder, http.Handler, func(context.Context) error, error) {
	if !cfg.Enabled {
		return NewRecorder(), nil, func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	promReader, promHandler, err := promReaderFactory()
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []sdkmetric.Option{sdkmetric.WithReader(promReader)}

	if cfg.OtlpEndpoint != "" {
		otlpReader, err := otlpReaderFactory(ctx, cfg.OtlpEndpoint, cfg.OtlpInsecure)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, sdkmetric.WithReader(otlpReader))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	opts = append(opts, sdkmetric.WithResource(res))

	provider := sdkmetric.NewMeterProvider(opts...)
	otelInst, err := instrumentFactory(provider)
	if err != nil {
		return nil, nil, nil, err
	}

	rec := newRecorder(otelInst)
	shutdown := func(c context.Context) error {
		return provider.Shutdown(c)
	}
	return rec, promHandler, shutdown, nil
}

func buildOTLPReader(ctx context.Context, endpoint string, insecure bool) (sdkmetric.Reader, error) {
	otlpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if insecure {
		otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
	}
	otlpExp, err := otlpmetrichttp.New(ctx, otlpOpts...)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(otlpExp, sdkmetric.WithInterval(15*time.Second)), nil
}

type otelInstruments struct {
	ctx               context.Context
	requests          metric.Int64Counter
	requestLatencyMs  metric.Float64Histogram
	providerAttempts  metric.Int64Counter
	providerErrors    metric.Int64Counter
	providerLatencyMs metric.Float64Histogram
	pollerCycles      metric.Int64Counter
	pollerErrors      metric.Int64Counter
	pollerLatencyMs   metric.Float64Histogram
	pushConnections   metric.Int64UpDownCounter
	pushBroadcasts    metric.Int64Counter
	pushRecipients    metric.Int64Counter
	fetches           metric.Int64Counter
	fetchLatencyMs    metric.Float64Histogram
	reconciliations   metric.Int64Counter
	appeared          metric.Int64Counter
	disappeared       metric.Int64Counter
}

func prometheusComponents() (sdkmetric.Reader, http.Handler, error) {
	reg := prometheus.NewRegistry()
	promExp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, err
	}
	return promExp, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

func newOtelInstruments(provider metric.MeterProvider) (*otelInstruments, error) {
	meter := provider.Meter(defaultServiceName)
	inst := &otelInstruments{ctx: context.Background()}

	var err error
	counters := []struct {
		name string
		dst  *metric.Int64Counter
	}{
		{"http_requests_total", &inst.requests},
		{"provider_attempts_total", &inst.providerAttempts},
		{"provider_errors_total", &inst.providerErrors},
		{"poller_cycles_total", &inst.pollerCycles},
		{"poller_errors_total", &inst.pollerErrors},
		{"push_broadcasts_total", &inst.pushBroadcasts},
		{"push_recipients_total", &inst.pushRecipients},
		{"sync_fetches_total", &inst.fetches},
		{"sync_reconciliations_total", &inst.reconciliations},
		{"sync_appeared_total", &inst.appeared},
		{"sync_disappeared_total", &inst.disappeared},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name); err != nil {
			return nil, err
		}
	}

	histograms := []struct {
		name string
		dst  *metric.Float64Histogram
	}{
		{"http_request_duration_ms", &inst.requestLatencyMs},
		{"provider_duration_ms", &inst.providerLatencyMs},
		{"poller_cycle_duration_ms", &inst.pollerLatencyMs},
		{"sync_fetch_duration_ms", &inst.fetchLatencyMs},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name); err != nil {
			return nil, err
		}
	}

	if inst.pushConnections, err = meter.Int64UpDownCounter("push_connections"); err != nil {
		return nil, err
	}
	return inst, nil
}

func (o *otelInstruments) recordHTTPRequest(method, path string, status int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrMethod, method),
		attribute.String(AttrPath, path),
		attribute.Int(AttrStatus, status),
	}
	o.recordCounter(o.requests, 1, attrs...)
	o.recordHistogram(o.requestLatencyMs, float64(duration.Milliseconds()), attrs...)
}

func (o *otelInstruments) recordProviderAttempt(provider string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(AttrProvider, provider)}
	o.recordCounter(o.providerAttempts, 1, attrs...)
	o.recordHistogram(o.providerLatencyMs, float64(duration.Milliseconds()), attrs...)
	if err != nil {
		o.recordCounter(o.providerErrors, 1, attrs...)
	}
}

func (o *otelInstruments) recordPoller(duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.recordCounter(o.pollerCycles, 1)
	o.recordHistogram(o.pollerLatencyMs, float64(duration.Milliseconds()))
	if err != nil {
		o.recordCounter(o.pollerErrors, 1)
	}
}

func (o *otelInstruments) recordPushConnection(delta int64) {
	if o == nil {
		return
	}
	o.pushConnections.Add(o.ctx, delta)
}

func (o *otelInstruments) recordPushBroadcast(recipients int64) {
	if o == nil {
		return
	}
	o.recordCounter(o.pushBroadcasts, 1)
	o.recordCounter(o.pushRecipients, recipients)
}

func (o *otelInstruments) recordFetch(origin, kind string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrOrigin, origin),
		attribute.String(AttrErrorKind, kind),
	}
	o.recordCounter(o.fetches, 1, attrs...)
	o.recordHistogram(o.fetchLatencyMs, float64(duration.Milliseconds()), attrs...)
}

func (o *otelInstruments) recordReconcile(source string, appeared, disappeared int64) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(AttrSource, source)}
	o.recordCounter(o.reconciliations, 1, attrs...)
	o.recordCounter(o.appeared, appeared, attrs...)
	o.recordCounter(o.disappeared, disappeared, attrs...)
}

func (o *otelInstruments) recordCounter(counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if o == nil {
		return
	}
	counter.Add(o.ctx, value, metric.WithAttributes(attrs...))
}

func (o *otelInstruments) recordHistogram(hist metric.Float64Histogram, value float64, attrs ...attribute.KeyValue) {
	if o == nil {
		return
	}
	hist.Record(o.ctx, value, metric.WithAttributes(attrs...))
}
