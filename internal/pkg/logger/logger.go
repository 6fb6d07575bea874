// Package logger wraps Uber's Zap with the service's configuration and provides
// the HTTP middleware that records every served request.
package logger

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

// Logger wraps the zap.Logger to provide additional logging functionality.
type Logger struct {
	*zap.Logger
}

// CreateLogger builds a production Zap logger writing at the given level.
// On failure it still returns a usable logger: the production default, or a no-op one.
func CreateLogger(level string) (*Logger, error) {
	fallback, err := zap.NewProduction()
	if err != nil {
		log.Println(err)
		fallback = zap.NewNop()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return &Logger{Logger: fallback}, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return &Logger{Logger: fallback}, err
	}
	return &Logger{Logger: zl}, nil
}

// WithLogging returns HTTP middleware that logs every request once it has been served:
// method, path, query, remote address, status code, duration and response size.
// Server errors are logged at error level.
func (log *Logger) WithLogging() func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			defer func() {
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("uri", r.URL.Path),
					zap.String("query", r.URL.RawQuery),
					zap.String("remote", r.RemoteAddr),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(started)),
					zap.Int("size", ww.BytesWritten()),
				}
				if ww.Status() >= http.StatusInternalServerError {
					log.Error("served", fields...)
					return
				}
				log.Info("served", fields...)
			}()
			h.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
