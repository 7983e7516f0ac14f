package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"brokerage_site/internal/adapters/observability"
	"brokerage_site/internal/domain"
)

func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"Request timed out"}`)
	}
}

// ---- bearer auth ----

type identityKey struct{}

// IdentityFrom returns the caller resolved by RequireBearer.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

// RequireBearer rejects requests without a valid "Authorization: Bearer" token.
// Any verification failure is a 401; failures other than a rejected token are logged.
func RequireBearer(v domain.IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			id, err := v.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, domain.ErrUnauthorized) {
					log.Error().Err(err).Str("path", r.URL.Path).Msg("token verification failed")
				}
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
		})
	}
}

func bearer(h string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ---- status-recording ResponseWriter ----

type srw struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *srw) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *srw) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *srw) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// ---- Metrics middleware ----

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &srw{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		observability.ObserveHTTP(route, r.Method, sw.Status(), time.Since(start))
	})
}

// ---- Structured logging middleware ----

func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &srw{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			ev := l.Info()
			if sw.Status() >= http.StatusInternalServerError {
				ev = l.Error()
			}
			ev.
				Str("route", route).
				Str("method", r.Method).
				Int("status", sw.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", remoteIP(r)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("ua", r.UserAgent()).
				Msg("http_request")
		})
	}
}

// Picks first X-Forwarded-For IP, else X-Real-IP, else RemoteAddr host.
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
