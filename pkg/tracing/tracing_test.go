package tracing

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	return recorder
}

func TestHandlerSpanWrapper_RecordsError(t *testing.T) {
	RegisterTestingT(t)
	recorder := withRecorder(t)

	boom := errors.New("parse failed")
	err := HandlerSpanWrapper(context.Background(), "user", "upload", func(ctx context.Context) error {
		Expect(GetTraceID(ctx)).ToNot(BeEmpty())
		return boom
	})

	Expect(err).To(MatchError(boom))

	spans := recorder.Ended()
	Expect(spans).To(HaveLen(1))
	Expect(spans[0].Name()).To(Equal("handler.user.upload"))
	Expect(spans[0].Status().Code).To(Equal(codes.Error))
}

func TestSpanWrapper_Success(t *testing.T) {
	RegisterTestingT(t)
	recorder := withRecorder(t)

	Expect(SpanWrapper(context.Background(), "work", nil, func(context.Context) error { return nil })).To(Succeed())

	spans := recorder.Ended()
	Expect(spans).To(HaveLen(1))
	Expect(spans[0].Status().Code).To(Equal(codes.Unset))
}

func TestGetTraceID_NoSpan(t *testing.T) {
	RegisterTestingT(t)

	Expect(GetTraceID(context.Background())).To(BeEmpty())
}
