// Package telemetry wires Sentry tracing around the content pipeline.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

const serviceName = "brandgov"

// Config holds the settings for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init initializes Sentry with tracing enabled and returns a shutdown
// function that flushes pending events. An empty DSN disables
// telemetry entirely; init failures log and continue, since the server
// is more useful untraced than down.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			// Health checks would drown out everything else.
			if ctx.Span.Name == "GET /health" || ctx.Span.Op == "http.server GET /health" {
				return 0.0
			}
			// Child spans inherit the parent's sampling decision.
			var emptySpanID sentry.SpanID
			if ctx.Span.ParentSpanID != emptySpanID {
				if ctx.Span.Sampled.Bool() {
					return 1.0
				}
				return 0.0
			}
			return cfg.TracesSampleRate
		}),
	})
	if err != nil {
		log.Printf("sentry: failed to initialize (continuing without tracing): %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing initialized (environment: %s, sample_rate: %.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() {
		sentry.Flush(5 * time.Second)
	}, nil
}

// SpanAttributes carries the pipeline identifiers tagged on a span so
// a trace can be tied back to the brand, manual, piece, and caller it
// touched.
type SpanAttributes struct {
	BrandID     string
	ManualID    string
	PieceID     string
	PrincipalID string
	Operation   string
}

// Span is a thin wrapper over sentry.Span that tolerates a nil inner
// span, so callers never need to branch on whether telemetry is on.
type Span struct {
	inner *sentry.Span
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports the error.
func (s *Span) SetError(err error) {
	if s.inner == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// StartSpan opens a span named after the service operation. Under the
// HTTP middleware's transaction it becomes a child span; called from a
// background worker it starts a fresh transaction.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	if attrs.BrandID != "" {
		span.SetTag("brand_id", attrs.BrandID)
	}
	if attrs.ManualID != "" {
		span.SetTag("manual_id", attrs.ManualID)
	}
	if attrs.PieceID != "" {
		span.SetTag("piece_id", attrs.PieceID)
	}
	if attrs.PrincipalID != "" {
		span.SetTag("principal_id", attrs.PrincipalID)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}

	return span.Context(), &Span{inner: span}
}
