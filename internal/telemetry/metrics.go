package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"pkt.systems/pslog"

	"github.com/Leganyst/docwatch/internal/notify"
)

// Metrics holds the application instruments. A nil *Metrics records nothing.
type Metrics struct {
	scans        metric.Int64Counter
	scanDuration metric.Float64Histogram
	deliveries   metric.Int64Counter
	payments     metric.Int64Counter
	requests     metric.Int64Counter
	reqDuration  metric.Float64Histogram
}

func NewMetrics(meter metric.Meter, logger pslog.Logger) *Metrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("docwatch")
	}
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	m := &Metrics{}
	var err error

	m.scans, err = meter.Int64Counter(
		"docwatch.notify.scans",
		metric.WithDescription("Notification scan passes"),
	)
	logInitError(logger, "docwatch.notify.scans", err)

	m.scanDuration, err = meter.Float64Histogram(
		"docwatch.notify.scan.duration",
		metric.WithDescription("Notification scan duration"),
		metric.WithUnit("s"),
	)
	logInitError(logger, "docwatch.notify.scan.duration", err)

	m.deliveries, err = meter.Int64Counter(
		"docwatch.notify.deliveries",
		metric.WithDescription("Web Push delivery attempts"),
	)
	logInitError(logger, "docwatch.notify.deliveries", err)

	m.payments, err = meter.Int64Counter(
		"docwatch.payments.verified",
		metric.WithDescription("Payment verification outcomes"),
	)
	logInitError(logger, "docwatch.payments.verified", err)

	m.requests, err = meter.Int64Counter(
		"docwatch.http.requests",
		metric.WithDescription("HTTP requests served"),
	)
	logInitError(logger, "docwatch.http.requests", err)

	m.reqDuration, err = meter.Float64Histogram(
		"docwatch.http.request.duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	)
	logInitError(logger, "docwatch.http.request.duration", err)

	return m
}

// ObserveScan counts the scan and each of its delivery attempts.
func (m *Metrics) ObserveScan(report notify.Report, err error) {
	if m == nil {
		return
	}
	ctx := context.Background()
	result := "ok"
	if err != nil {
		result = "error"
	}
	if m.scans != nil {
		m.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
	if m.scanDuration != nil && !report.FinishedAt.IsZero() {
		m.scanDuration.Record(ctx, report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
	if m.deliveries == nil {
		return
	}
	for _, res := range report.Results {
		outcome := "delivered"
		if !res.OK() {
			outcome = "failed"
		}
		m.deliveries.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(res.Kind)),
			attribute.String("result", outcome),
		))
	}
}

// ObservePayment counts one verification by outcome
// (recorded, replay, rejected, error).
func (m *Metrics) ObservePayment(outcome string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	if m.requests != nil {
		m.requests.Add(ctx, 1, attrs)
	}
	if m.reqDuration != nil {
		m.reqDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func logInitError(logger pslog.Logger, name string, err error) {
	if err == nil {
		return
	}
	logger.Warn("telemetry.metric.init_failed", "name", name, "error", err)
}
