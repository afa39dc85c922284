// Package tracing - OpenTelemetry трассировка use case'ов.
package tracing

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ignatzorin/swapmarket-backend/internal/logger"
)

const tracerName = "github.com/ignatzorin/swapmarket-backend"

// Init поднимает провайдер трассировки. Без endpoint трассировка выключена.
// Возвращает функцию остановки для graceful shutdown.
func Init(ctx context.Context, otlpEndpoint, serviceName string) (func(context.Context) error, error) {
	if otlpEndpoint == "" {
		logger.Entry().Info("трассировка отключена (OTEL_EXPORTER_OTLP_ENDPOINT не задан)")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Entry().WithField("endpoint", otlpEndpoint).Info("трассировка включена")
	return tp.Shutdown, nil
}

func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// End закрывает span, помечая его ошибкой, если она есть.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func OrderID(id uuid.UUID) attribute.KeyValue {
	return attribute.String("order.id", id.String())
}

func DisputeID(id uuid.UUID) attribute.KeyValue {
	return attribute.String("dispute.id", id.String())
}

func TradeID(id uuid.UUID) attribute.KeyValue {
	return attribute.String("trade.id", id.String())
}

func ActorID(id uuid.UUID) attribute.KeyValue {
	return attribute.String("actor.id", id.String())
}
