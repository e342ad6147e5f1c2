package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// SentryMiddleware opens a transaction per request, tags it with the
// request ID and authenticated principal, and reports panics and 5xx
// responses. With no Sentry client initialized everything here is a
// no-op.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		// Join an upstream trace when the caller sent one.
		if sentryTrace := r.Header.Get("sentry-trace"); sentryTrace != "" {
			options = append(options, sentry.ContinueFromHeaders(sentryTrace, r.Header.Get("baggage")))
		}

		transaction := sentry.StartTransaction(
			r.Context(),
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			options...,
		)
		defer transaction.Finish()

		ctx := sentry.SetHubOnContext(transaction.Context(), hub)
		r = r.WithContext(ctx)
		r, holder := ensurePrincipalHolder(r)

		hub.Scope().SetContext("request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"remote_addr": r.RemoteAddr,
		})

		if requestID := GetRequestID(r.Context()); requestID != "" {
			hub.Scope().SetTag("request_id", requestID)
			transaction.SetTag("request_id", requestID)
		}
		if userAgent := r.UserAgent(); userAgent != "" {
			hub.Scope().SetTag("user_agent", userAgent)
		}

		defer func() {
			if err := recover(); err != nil {
				transaction.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), err)
				// Re-panic so the recovery middleware still writes a 500.
				panic(err)
			}
		}()

		rec := &sentryResponseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		transaction.Status = spanStatusFromHTTP(status)
		transaction.SetData("http.response.status_code", status)

		// The auth middleware runs inside this one and fills the shared
		// holder; its context value never reaches this frame.
		if principal := holder.principal; principal != nil {
			hub.Scope().SetTag("principal_id", principal.ID)
			hub.Scope().SetTag("role", string(principal.Role))
			transaction.SetTag("principal_id", principal.ID)
		}

		if status >= 500 {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)))
		}
	})
}

var spanStatusByCode = map[int]sentry.SpanStatus{
	http.StatusBadRequest:          sentry.SpanStatusInvalidArgument,
	http.StatusUnauthorized:        sentry.SpanStatusUnauthenticated,
	http.StatusForbidden:           sentry.SpanStatusPermissionDenied,
	http.StatusNotFound:            sentry.SpanStatusNotFound,
	http.StatusConflict:            sentry.SpanStatusAlreadyExists,
	http.StatusTooManyRequests:     sentry.SpanStatusResourceExhausted,
	499:                            sentry.SpanStatusCanceled,
	http.StatusInternalServerError: sentry.SpanStatusInternalError,
	http.StatusNotImplemented:      sentry.SpanStatusUnimplemented,
	http.StatusServiceUnavailable:  sentry.SpanStatusUnavailable,
	http.StatusGatewayTimeout:      sentry.SpanStatusDeadlineExceeded,
}

func spanStatusFromHTTP(status int) sentry.SpanStatus {
	if s, ok := spanStatusByCode[status]; ok {
		return s
	}
	switch {
	case status >= 200 && status < 300:
		return sentry.SpanStatusOK
	case status >= 400 && status < 500:
		return sentry.SpanStatusInvalidArgument
	case status >= 500:
		return sentry.SpanStatusInternalError
	default:
		return sentry.SpanStatusUnknown
	}
}

type sentryResponseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *sentryResponseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *sentryResponseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
