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

// Metrics exposes costing instruments.
type Metrics struct {
	rollups          metric.Int64Counter
	rollupFailures   metric.Int64Counter
	recalculations   metric.Int64Counter
	reportCacheReads metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
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

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "recipecost"
	}
	meter := provider.Meter(name)

	rollups, err := meter.Int64Counter("recipecost_rollups_total",
		metric.WithDescription("Recipe breakdowns computed, by trigger."))
	if err != nil {
		return nil, err
	}
	rollupFailures, err := meter.Int64Counter("recipecost_rollup_failures_total",
		metric.WithDescription("Recipe breakdowns that failed, by error kind."))
	if err != nil {
		return nil, err
	}
	recalculations, err := meter.Int64Counter("recipecost_snapshot_recalculations_total",
		metric.WithDescription("Persisted recipe cost snapshots rewritten, by source."))
	if err != nil {
		return nil, err
	}
	reportCacheReads, err := meter.Int64Counter("recipecost_report_cache_reads_total",
		metric.WithDescription("Report cache lookups, by result."))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		rollups:          rollups,
		rollupFailures:   rollupFailures,
		recalculations:   recalculations,
		reportCacheReads: reportCacheReads,
	}, nil
}

// RecordRollup counts a successful breakdown.
func (m *Metrics) RecordRollup(ctx context.Context, trigger string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("trigger", strings.TrimSpace(trigger)))
	m.rollups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRollupFailure counts a failed breakdown by its error kind.
func (m *Metrics) RecordRollupFailure(ctx context.Context, trigger, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("trigger", strings.TrimSpace(trigger)),
		attribute.String("kind", strings.TrimSpace(kind)),
	)
	m.rollupFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRecalculations counts snapshot rewrites caused by a write.
func (m *Metrics) RecordRecalculations(ctx context.Context, source string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.recalculations.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordReportCache counts a report cache hit or miss.
func (m *Metrics) RecordReportCache(ctx context.Context, kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	attrs := FilterAttributes(
		attribute.String("report", strings.TrimSpace(kind)),
		attribute.String("result", result),
	)
	m.reportCacheReads.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"trigger": {},
	"kind":    {},
	"source":  {},
	"report":  {},
	"result":  {},
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
