package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/infrastructure"
)

// writeProblem emits a minimal RFC 7807 body for failures that happen in
// the middleware chain, before any handler-level error handling exists.
func writeProblem(w http.ResponseWriter, status int, typ, title, detail, traceID string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	body, _ := json.Marshal(map[string]interface{}{
		"type":     typ,
		"title":    title,
		"status":   status,
		"detail":   detail,
		"trace_id": traceID,
	})
	w.Write(body)
}

// RequestID assigns every request an identifier that doubles as the log
// trace ID. An incoming X-Request-ID header wins so IDs survive proxies,
// and when a span is recording its trace ID takes over for correlation.
// Belongs first in the chain.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), chimw.RequestIDKey, id)
		ctx = infrastructure.WithTraceID(ctx, id)
		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetReqID returns the identifier assigned by RequestID, or "".
func GetReqID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// StructuredLogger logs request start and completion through slog, carrying
// the trace ID so chain entries join up with handler entries.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ctx := r.Context()

			entry := logger.With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			if id := infrastructure.GetTraceID(ctx); id != "" {
				entry = entry.With(slog.String("trace_id", id))
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			entry.InfoContext(ctx, "request started",
				slog.String("remote", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			)

			next.ServeHTTP(ww, r)

			entry.InfoContext(ctx, "request completed",
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(started)),
			)
		})
	}
}

// Recoverer converts handler panics into 500 problem responses. The stack
// goes to the log, never to the client.
func Recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				ctx := r.Context()
				logger.ErrorContext(ctx, "panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				writeProblem(w, http.StatusInternalServerError,
					"/errors/internal", "Internal Server Error",
					"An unexpected error occurred", infrastructure.GetTraceID(ctx))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter applies one token bucket across all API traffic. Uploads and
// renders are heavyweight enough that a global bucket is the right grain.
type RateLimiter struct {
	bucket *rate.Limiter
	logger *slog.Logger
}

// NewRateLimiter allows rps sustained requests with the given burst headroom.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		bucket: rate.NewLimiter(rate.Limit(rps), burst),
		logger: logger,
	}
}

// Handler rejects requests with 429 once the bucket is drained.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.bucket.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		rl.logger.WarnContext(r.Context(), "rate limit exceeded",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
		)
		w.Header().Set("Retry-After", "60")
		writeProblem(w, http.StatusTooManyRequests,
			"/errors/rate-limit", "Too Many Requests",
			"Rate limit exceeded, retry after 60 seconds",
			infrastructure.GetTraceID(r.Context()))
	})
}

// Timeout cancels the request context after d and answers 504 when the
// handler has not finished by then.
func Timeout(d time.Duration, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			finished := make(chan struct{})
			go func() {
				defer close(finished)
				next.ServeHTTP(w, r.WithContext(ctx))
			}()

			select {
			case <-finished:
			case <-ctx.Done():
				logger.ErrorContext(r.Context(), "request timed out",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Duration("limit", d),
				)
				writeProblem(w, http.StatusGatewayTimeout,
					"/errors/timeout", "Request Timeout",
					"The request took too long to process",
					infrastructure.GetTraceID(r.Context()))
			}
		})
	}
}

// CORSConfig describes which browser origins the API accepts.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	Logger           *slog.Logger
}

// CORS answers preflights and stamps response headers for allowed origins.
// An empty AllowedOrigins list admits every origin; "*" in the list does
// the same while still echoing the caller's origin, which keeps the
// headers valid alongside AllowCredentials.
func CORS(cfg CORSConfig) func(next http.Handler) http.Handler {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Accept", "Content-Type", "X-Request-ID"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 300
	}

	// Header values never change per request, so join them once.
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	originAllowed := func(origin string) bool {
		if len(cfg.AllowedOrigins) == 0 {
			return true
		}
		for _, o := range cfg.AllowedOrigins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			if origin != "" && originAllowed(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Max-Age", maxAge)

			if r.Method == http.MethodOptions {
				if cfg.Logger != nil {
					cfg.Logger.DebugContext(r.Context(), "CORS preflight",
						slog.String("origin", origin))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds browser hardening headers. Figure documents load the
// ECharts runtime from the go-echarts asset host and are embedded in
// same-origin iframes, so the CSP and frame policy must both allow that.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline' https://go-echarts.github.io; style-src 'self' 'unsafe-inline'; img-src 'self' data: blob:; font-src 'self' data:; frame-src 'self'")
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// Compress wraps chi's response compression.
func Compress(level int) func(next http.Handler) http.Handler {
	return chimw.Compress(level)
}

// RealIP wraps chi's forwarded-address resolution.
func RealIP(next http.Handler) http.Handler {
	return chimw.RealIP(next)
}
