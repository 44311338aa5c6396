package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes affiliate program instruments.
type Metrics struct {
	clicks      metric.Int64Counter
	conversions metric.Int64Counter
	payouts     metric.Int64Counter
	attribution metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled || strings.TrimSpace(cfg.ExporterEndpoint) == "" {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down meter provider")
			return provider.Shutdown(ctx)
		},
	})

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "affiliate"
	}
	meter := provider.Meter(name)

	clicks, err := meter.Int64Counter("affiliate_clicks_total")
	if err != nil {
		return nil, err
	}
	conversions, err := meter.Int64Counter("affiliate_conversions_total")
	if err != nil {
		return nil, err
	}
	payouts, err := meter.Int64Counter("affiliate_payouts_total")
	if err != nil {
		return nil, err
	}
	attribution, err := meter.Int64Counter("affiliate_attribution_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		clicks:      clicks,
		conversions: conversions,
		payouts:     payouts,
		attribution: attribution,
	}, nil
}

// NewNoop returns instruments backed by a no-op provider, for tests.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

func (m *Metrics) RecordClick(ctx context.Context, orgID string) {
	if m == nil {
		return
	}
	m.clicks.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("org_id", strings.TrimSpace(orgID)),
	)...))
}

// RecordConversion counts conversion lifecycle events (recorded, approved, rejected).
func (m *Metrics) RecordConversion(ctx context.Context, orgID, eventType string) {
	if m == nil {
		return
	}
	m.conversions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("org_id", strings.TrimSpace(orgID)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
	)...))
}

// RecordPayout counts payout lifecycle events (created, processing, paid).
func (m *Metrics) RecordPayout(ctx context.Context, orgID, eventType string) {
	if m == nil {
		return
	}
	m.payouts.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("org_id", strings.TrimSpace(orgID)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
	)...))
}

// RecordAttribution counts order attribution outcomes by source (token, referral_code, none).
func (m *Metrics) RecordAttribution(ctx context.Context, orgID, source string) {
	if m == nil {
		return
	}
	m.attribution.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("org_id", strings.TrimSpace(orgID)),
		attribute.String("source", strings.TrimSpace(source)),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "grpc", "grpc/protobuf", "":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"org_id":      {},
	"route":       {},
	"method":      {},
	"status_code": {},
	"event_type":  {},
	"source":      {},
	"job":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
