// Package metrics exposes application-level otel instruments.
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
}

// Metrics exposes billing instruments.
type Metrics struct {
	billsPersisted  metric.Int64Counter
	decodeFallbacks metric.Int64Counter
	calcAnomalies   metric.Int64Counter
	depositWrites   metric.Int64Counter
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

	return provider, nil
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}

// New configures the billing instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "ipdbilling"
	}
	meter := provider.Meter(name)

	billsPersisted, err := meter.Int64Counter("billing_bills_persisted_total",
		metric.WithDescription("Bills written to the ledger store"))
	if err != nil {
		return nil, err
	}
	decodeFallbacks, err := meter.Int64Counter("billing_decode_fallback_total",
		metric.WithDescription("Payloads that required legacy reconstruction"))
	if err != nil {
		return nil, err
	}
	calcAnomalies, err := meter.Int64Counter("billing_calc_anomaly_total",
		metric.WithDescription("Numeric inputs clamped to zero during computation"))
	if err != nil {
		return nil, err
	}
	depositWrites, err := meter.Int64Counter("billing_deposit_writes_total",
		metric.WithDescription("Deposit create/edit/delete operations"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		billsPersisted:  billsPersisted,
		decodeFallbacks: decodeFallbacks,
		calcAnomalies:   calcAnomalies,
		depositWrites:   depositWrites,
	}, nil
}

func (m *Metrics) RecordBillPersisted(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.billsPersisted.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *Metrics) RecordDecodeFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.decodeFallbacks.Add(ctx, 1)
}

func (m *Metrics) RecordCalcAnomalies(ctx context.Context, count int) {
	if m == nil || count == 0 {
		return
	}
	m.calcAnomalies.Add(ctx, int64(count))
}

func (m *Metrics) RecordDepositWrite(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.depositWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
