package injector

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jingyiliu/injector"

const (
	attrContract = attribute.Key("injector.contract")
	attrScope    = attribute.Key("injector.scope_id")
	attrKind     = attribute.Key("injector.scope_kind")
	attrOutcome  = attribute.Key("injector.outcome")
	attrCode     = attribute.Key("injector.error_code")
)

type telemetry struct {
	tracer      trace.Tracer
	resolutions metric.Int64Counter
	duration    metric.Float64Histogram
	disposals   metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*telemetry, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	resolutions, err := meter.Int64Counter("injector.resolutions",
		metric.WithDescription("Number of top-level resolutions"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("injector.resolution.duration",
		metric.WithDescription("Duration of top-level resolutions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	disposals, err := meter.Int64Counter("injector.disposals",
		metric.WithDescription("Number of disposed instances"),
	)
	if err != nil {
		return nil, err
	}

	return &telemetry{
		tracer:      tp.Tracer(instrumentationName),
		resolutions: resolutions,
		duration:    duration,
		disposals:   disposals,
	}, nil
}

// startResolve opens the span of one resolution. The returned func ends it
// and records the metrics.
func (t *telemetry) startResolve(ctx context.Context, contract, scopeID string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := t.tracer.Start(ctx, "injector.Resolve",
		trace.WithAttributes(attrContract.String(contract), attrScope.String(scopeID)),
	)

	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attrCode.String(CodeOf(err).String()))
		}
		span.End()

		attrs := metric.WithAttributes(attrContract.String(contract), attrOutcome.String(outcome))
		t.resolutions.Add(ctx, 1, attrs)
		t.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

func (t *telemetry) disposed(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	t.disposals.Add(context.Background(), 1,
		metric.WithAttributes(attrKind.String(kind), attrOutcome.String(outcome)),
	)
}
