package httpapi

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tanpawarit/kcartbot/marketplace/model"
)

type contextKey string

const userKey contextKey = "user"

// ActorMiddleware resolves the bearer token into a user. Requests without a token
// continue anonymously; a token that does not resolve is rejected.
func ActorMiddleware(auth authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(header, "Bearer ") {
				jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			u, err := auth.resolve(r.Context(), strings.TrimPrefix(header, "Bearer "))
			switch {
			case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUnknownUser):
				jsonError(w, http.StatusUnauthorized, "invalid token")
				return
			case err != nil:
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("resolve actor")
				jsonError(w, http.StatusInternalServerError, "An unexpected error occurred")
				return
			}

			ctx := r.Context()
			if u != nil {
				ctx = context.WithValue(ctx, userKey, u)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFrom(r.Context()) == nil {
			jsonError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggingMiddleware attaches log to the request context and logs one line per request.
func LoggingMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(log.WithContext(r.Context())))

			ev := log.Info()
			if rec.status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

// UserFrom returns the authenticated user, or nil for anonymous requests.
func UserFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey).(*model.User)
	return u
}
