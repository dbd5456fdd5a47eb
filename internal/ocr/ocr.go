// Package ocr defines the text-recognition capability and decorators around it.
// The Tesseract engine lives in the tesseract subpackage so that this package builds without cgo.
package ocr

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrTimeout is returned when an engine does not answer within the configured timeout.
var ErrTimeout = errors.New("ocr: engine timed out")

// Recognizer extracts text from an encoded image in the given language.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, language string) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, image []byte, language string) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	return f(ctx, image, language)
}

// WithTimeout bounds every call to next by d. Engines that ignore the context keep
// running in their goroutine until they return; the caller is released at the deadline.
// A non-positive d returns next unchanged.
func WithTimeout(next Recognizer, d time.Duration) Recognizer {
	if d <= 0 {
		return next
	}
	return RecognizerFunc(func(ctx context.Context, image []byte, language string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		type result struct {
			text string
			err  error
		}
		done := make(chan result, 1)
		go func() {
			text, err := next.Recognize(ctx, image, language)
			done <- result{text, err}
		}()

		select {
		case r := <-done:
			return r.text, r.err
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", ErrTimeout
			}
			return "", ctx.Err()
		}
	})
}

// Metrics holds the recognition counters and latency histogram.
type Metrics struct {
	recognitions *prometheus.CounterVec
	duration     prometheus.Histogram
}

// NewMetrics registers the OCR metrics on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		recognitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocr_recognitions_total",
				Help: "Total number of OCR calls by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ocr_recognition_duration_seconds",
			Help:    "Duration of OCR calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
	for _, c := range []prometheus.Collector{m.recognitions, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Instrument records outcome and latency of every call to next.
func (m *Metrics) Instrument(next Recognizer) Recognizer {
	return RecognizerFunc(func(ctx context.Context, image []byte, language string) (string, error) {
		start := time.Now()
		text, err := next.Recognize(ctx, image, language)
		m.duration.Observe(time.Since(start).Seconds())

		outcome := "success"
		switch {
		case errors.Is(err, ErrTimeout):
			outcome = "timeout"
		case err != nil:
			outcome = "error"
		}
		m.recognitions.WithLabelValues(outcome).Inc()
		return text, err
	})
}

// Traced wraps every call to next in an "ocr.recognize" span from tp.
func Traced(next Recognizer, tp trace.TracerProvider) Recognizer {
	tracer := tp.Tracer("impugnaya/internal/ocr")
	return RecognizerFunc(func(ctx context.Context, image []byte, language string) (string, error) {
		ctx, span := tracer.Start(ctx, "ocr.recognize", trace.WithAttributes(
			attribute.String("ocr.language", language),
			attribute.Int("ocr.image_bytes", len(image)),
		))
		defer span.End()

		text, err := next.Recognize(ctx, image, language)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "recognition failed")
			return "", err
		}
		span.SetAttributes(attribute.Int("ocr.text_length", len(text)))
		return text, nil
	})
}
