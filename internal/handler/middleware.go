package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/runclub/internal/auth"
	"github.com/Shivanand-hulikatti/runclub/internal/log"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
)

// AdminTokenHeader carries the organizer token.
const AdminTokenHeader = "X-Admin-Token"

type ctxKey int

const userKey ctxKey = iota

// UserFrom returns the authenticated user stored on the request context.
func UserFrom(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// Logger writes one access log line per request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
			}
			if ww.Status() >= http.StatusInternalServerError {
				log.Warn(log.CatHTTP, "request", fields...)
				return
			}
			log.Info(log.CatHTTP, "request", fields...)
		}()
		next.ServeHTTP(ww, r)
	})
}

// CORS allows any origin. Preflight requests are answered directly.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+AdminTokenHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate resolves HTTP Basic credentials to a user. Requests without
// credentials pass through anonymously unless required is set; bad
// credentials are always rejected.
func Authenticate(a auth.Authenticator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			login, password, ok := r.BasicAuth()
			if !ok {
				if required {
					unauthorized(w)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := a.Authenticate(r.Context(), login, password)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidCredentials) {
					log.ErrorErr(log.CatAuth, "Authentication failed", err)
					writeError(w, http.StatusInternalServerError, "authentication failed")
					return
				}
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="runclub"`)
	writeError(w, http.StatusUnauthorized, "authentication required")
}

// RequireAdmin guards organizer routes with a shared token. An empty token
// disables them.
func RequireAdmin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeError(w, http.StatusForbidden, "organizer routes are disabled")
				return
			}
			got := r.Header.Get(AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusForbidden, "invalid organizer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
