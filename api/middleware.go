package api

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"

	"github.com/garnizeh/southwheels/internal/router"
	"github.com/garnizeh/southwheels/internal/session"
	"github.com/garnizeh/southwheels/pkg/models"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "swt_session"

type ctxKey string

const ctxRouter ctxKey = "router"

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", slog.Any("err", err), slog.String("path", r.URL.Path))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// TimeoutMiddleware bounds the request context. Store calls observe the deadline.
func TimeoutMiddleware(d time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRFMiddleware checks the form token on every unsafe page request. The
// /v1 mirror is exempt unless it would authenticate from the session cookie,
// since a Bearer token cannot be attached by a cross-site form.
func CSRFMiddleware(key []byte, secure bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		protect := csrf.Protect(key,
			csrf.Secure(secure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
		)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/v1/") && !cookieAuthenticated(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !secure && r.TLS == nil {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protect.ServeHTTP(w, r)
		})
	}
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	logger.Warn("csrf check failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("origin", r.Header.Get("Origin")),
		slog.Any("err", csrf.FailureReason(r)))
	fail(w, r, http.StatusForbidden, "This form has expired. Reload the page and try again.")
}

func cookieAuthenticated(r *http.Request) bool {
	if r.Header.Get("Authorization") != "" {
		return false
	}
	_, err := r.Cookie(SessionCookie)
	return err == nil
}

// tokenFromRequest prefers the Authorization header over the session cookie.
func tokenFromRequest(r *http.Request) (token string, fromCookie bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t), false
		}
		logger.Warn("malformed Authorization header", slog.String("path", r.URL.Path))
		return "", false
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value, true
	}
	return "", false
}

// SessionMiddleware gives every request its own session store and role
// router, restores the session from the request token and resolves the
// profile. Handlers read the outcome with statusFrom.
func SessionMiddleware(restorer session.Restorer, resolver router.ProfileResolver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := session.New()
			rt := router.New(store, resolver, logger)
			defer rt.Close()

			token, fromCookie := tokenFromRequest(r)
			st := rt.Evaluate(r.Context(), store, restorer, token)
			if token != "" && st.State != router.Authenticated {
				if st.Err != nil {
					logger.Warn("session not established",
						slog.String("identity", st.Identity.ID), slog.Any("err", st.Err))
				}
				if fromCookie {
					clearSessionCookie(w)
				}
			}

			ctx := session.WithStore(r.Context(), store)
			ctx = context.WithValue(ctx, ctxRouter, rt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func routerFrom(ctx context.Context) *router.Router {
	rt, _ := ctx.Value(ctxRouter).(*router.Router)
	return rt
}

// statusFrom reports the request's routing status. Requests that did not
// pass through SessionMiddleware are unauthenticated.
func statusFrom(r *http.Request) router.Status {
	rt := routerFrom(r.Context())
	if rt == nil {
		return router.Status{State: router.Unauthenticated}
	}
	return rt.Status()
}

// RequireRole lets through only sessions authenticated with role.
// Browsers without a session are sent to the auth page.
func RequireRole(role models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := statusFrom(r)
			if st.State != router.Authenticated {
				if wantsJSON(r) {
					writeError(w, http.StatusUnauthorized, "authentication required")
					return
				}
				http.Redirect(w, r, "/auth", http.StatusSeeOther)
				return
			}
			if st.Role() != role {
				logger.Warn("role mismatch",
					slog.String("identity", st.Identity.ID),
					slog.String("role", st.Role().String()),
					slog.String("required", role.String()),
					slog.String("path", r.URL.Path))
				fail(w, r, http.StatusForbidden, "You do not have access to this page")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
