package api

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cexll/tasksync/internal/store"
)

// SessionCookie is the cookie carrying the session token for browser clients.
const SessionCookie = "auth_session"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userKey
)

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// UserFrom returns the authenticated user stored on the request context.
func UserFrom(ctx context.Context) (store.User, bool) {
	u, ok := ctx.Value(userKey).(store.User)
	return u, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// requestID tags each request with an id, reusing X-Request-ID when the
// caller supplied one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
		}
		if rec.status >= http.StatusInternalServerError {
			h.logger.Warn("request", fields...)
			return
		}
		h.logger.Info("request", fields...)
	})
}

func (h *Handler) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				h.logger.Error("panic serving request",
					zap.String("request_id", requestIDFrom(r.Context())),
					zap.Any("panic", v),
					zap.ByteString("stack", debug.Stack()),
				)
				writeErrorMessage(w, http.StatusInternalServerError, "Internal server error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the session token from the Authorization header,
// falling back to the session cookie.
func bearerToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", errMalformedAuth
		}
		return token, nil
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errMissingAuth
}

var (
	errMissingAuth   = errors.New("missing authorization header")
	errMalformedAuth = errors.New("malformed authorization header")
)

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			msg := "Invalid/Expired Token"
			if errors.Is(err, errMissingAuth) {
				msg = "Missing authorization header"
			}
			writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized", msg)
			return
		}
		user, err := h.svc.Authenticate(r.Context(), token)
		if err != nil {
			if errorStatus(err) == http.StatusInternalServerError {
				h.writeError(w, r, "Unauthorized", err)
				return
			}
			writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized", "Invalid/Expired Token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}
