package remote

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for backend requests.
var (
	tracer = otel.Tracer("webside.remote")
	meter  = otel.Meter("webside.remote")
)

var (
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	negotiations    metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		requestTotal, err = meter.Int64Counter(
			"webside_requests_total",
			metric.WithDescription("Total number of backend requests"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		requestDuration, err = meter.Float64Histogram(
			"webside_request_duration_seconds",
			metric.WithDescription("Duration of backend requests"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		negotiations, err = meter.Int64Counter(
			"webside_negotiations_total",
			metric.WithDescription("Change-log negotiation probes by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startRequestSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "remote.Client."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("webside.path", path),
		),
	)
}

func endRequestSpan(ctx context.Context, span trace.Span, method string, status int, elapsed time.Duration, err error) {
	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.Int("status", status),
		attribute.Bool("success", err == nil),
	)
	requestTotal.Add(ctx, 1, attrs)
	requestDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func recordNegotiation(ctx context.Context, outcome string) {
	if initMetrics() != nil {
		return
	}
	negotiations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
