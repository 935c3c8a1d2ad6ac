package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func TestSetupProviderWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupProvider(t.Context(), Config{ServiceName: "test"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestResourceAttributes(t *testing.T) {
	attrs := resourceAttributes(Config{})
	require.Len(t, attrs, 1)
	assert.Equal(t, semconv.ServiceName("aliasdoc"), attrs[0])

	attrs = resourceAttributes(Config{ServiceName: "docs", Version: "1.2.3"})
	assert.Equal(t, semconv.ServiceName("docs"), attrs[0])
	assert.Equal(t, semconv.ServiceVersion("1.2.3"), attrs[1])
}

func TestTracerUsesGlobalProvider(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := Tracer().Start(t.Context(), "work")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "work", ended[0].Name())
	assert.Equal(t, InstrumentationName, ended[0].InstrumentationScope().Name)
}
