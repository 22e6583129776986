package observability

import (
	"github.com/sevacare/ipdbilling/internal/config"
	"github.com/sevacare/ipdbilling/internal/observability/metrics"
	"go.uber.org/fx"
)

func provideMetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OTLPEnabled,
		ExporterEndpoint: cfg.OTLPEndpoint,
		ExporterProtocol: cfg.OTLPProtocol,
		ServiceName:      cfg.AppName,
	}
}

// Module wires the otel meter provider and billing instruments.
var Module = fx.Module("observability",
	fx.Provide(
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
	),
)
