package kiosk

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "packline.kiosk"

type metrics struct {
	transitions metric.Int64Counter
	rejections  metric.Int64Counter
	heartbeats  metric.Int64Counter
	packed      metric.Int64Counter
	packSeconds metric.Float64Histogram
}

// newMetrics registers the engine instruments. A nil meter falls back to the
// global provider, which is a no-op until one is installed.
func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	m := &metrics{}
	var err error
	if m.transitions, err = meter.Int64Counter("packline.pack.transitions",
		metric.WithDescription("Accepted packing workflow operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, err
	}
	if m.rejections, err = meter.Int64Counter("packline.pack.rejections",
		metric.WithDescription("Packing workflow operations refused by the state machine"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, err
	}
	if m.heartbeats, err = meter.Int64Counter("packline.timer.heartbeats",
		metric.WithDescription("Heartbeats appended to the ledger"),
		metric.WithUnit("{heartbeat}"),
	); err != nil {
		return nil, err
	}
	if m.packed, err = meter.Int64Counter("packline.pack.finished",
		metric.WithDescription("Finished packing attempts by status"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}
	if m.packSeconds, err = meter.Float64Histogram("packline.pack.duration",
		metric.WithDescription("Session timer total per finished attempt"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metrics) transition(ctx context.Context, op string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *metrics) rejection(ctx context.Context, op string) {
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *metrics) heartbeat(ctx context.Context, source string) {
	m.heartbeats.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *metrics) finished(ctx context.Context, sku, status string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.packed.Add(ctx, 1, attrs)
	m.packSeconds.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("sku", sku),
	))
}
