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

// Metrics exposes application-level instruments.
type Metrics struct {
	settlementTransitions metric.Int64Counter
	escrowSubmits         metric.Int64Counter
	escrowPolls           metric.Int64Counter
	operatorAttention     metric.Int64Counter
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
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp metrics protocol %q", protocol)
	}
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "stellapay"
	}
	meter := provider.Meter(name)

	settlementTransitions, err := meter.Int64Counter("stellapay_settlement_transitions_total")
	if err != nil {
		return nil, err
	}
	escrowSubmits, err := meter.Int64Counter("stellapay_escrow_submits_total")
	if err != nil {
		return nil, err
	}
	escrowPolls, err := meter.Int64Counter("stellapay_escrow_polls_total")
	if err != nil {
		return nil, err
	}
	operatorAttention, err := meter.Int64Counter("stellapay_operator_attention_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		settlementTransitions: settlementTransitions,
		escrowSubmits:         escrowSubmits,
		escrowPolls:           escrowPolls,
		operatorAttention:     operatorAttention,
	}, nil
}

// RecordTransition counts a payroll status transition.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.settlementTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordEscrowSubmit counts an escrow submission by operation kind and result.
func (m *Metrics) RecordEscrowSubmit(ctx context.Context, op, result string) {
	if m == nil {
		return
	}
	m.escrowSubmits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("result", result),
	))
}

// RecordEscrowPoll counts a status poll by observed escrow state.
func (m *Metrics) RecordEscrowPoll(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.escrowPolls.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// RecordOperatorAttention counts payrolls parked for manual intervention.
// This feeds the paging alert; it must fire on every exhausted-retries mark.
func (m *Metrics) RecordOperatorAttention(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.operatorAttention.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
