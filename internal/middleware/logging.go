package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

type userKey struct{}

// noteUser records the authenticated user for the request log. Auth runs deeper
// in the chain than logging, so the log reads it back through this holder.
func noteUser(ctx context.Context, userID string) {
	if u, ok := ctx.Value(userKey{}).(*string); ok {
		*u = userID
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var user string
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), userKey{}, &user)))

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", wrapped.written),
			zap.String("ip", clientIP(r)),
		}
		if user != "" {
			fields = append(fields, zap.String("user_id", user))
		}
		switch {
		case wrapped.statusCode >= 500:
			zap.L().Error("request", fields...)
		case wrapped.statusCode >= 400:
			zap.L().Warn("request", fields...)
		default:
			zap.L().Info("request", fields...)
		}
	})
}
