package httpserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"kosning/internal/platform/identity"
	"kosning/internal/platform/metrics"
	"kosning/internal/platform/ratelimit"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func writeFieldError(w http.ResponseWriter, status int, code string, message string, field string) {
	writeJSON(w, status, errorBody{Code: code, Message: message, Field: field})
}

// statusRecorder captures the response status for the request log and the
// per-route counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps a mux with the request log and the requests counter. The
// route label is the ServeMux pattern, not the raw path, so cardinality stays
// bounded.
func instrument(service string, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(service, route, statusClass(recorder.status)).Inc()
		logger.Info("http request",
			"event", "http_request",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"service", service,
			"route", route,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// allowRate runs the limiter for one operation and writes the 429 itself.
func allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.Limiter, op ratelimit.Operation) bool {
	if limiter == nil {
		return true
	}
	retryAfter, ok := limiter.Allow(op, clientIP(r))
	if ok {
		return true
	}
	metrics.RateLimitedTotal.WithLabelValues(string(op)).Inc()
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, retry later")
	return false
}

func bearerCredential(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// authenticate resolves the bearer credential through the verifier and
// writes the 401 on failure.
func authenticate(w http.ResponseWriter, r *http.Request, verifier identity.Verifier) (identity.Identity, bool) {
	credential := bearerCredential(r)
	if credential == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "bearer credential is required")
		return identity.Identity{}, false
	}
	caller, err := verifier.Verify(r.Context(), credential)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "credential rejected")
		return identity.Identity{}, false
	}
	return caller, true
}
