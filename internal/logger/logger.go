// Package logger provides structured logging on top of zap: a process-wide
// SugaredLogger, an HTTP access-log middleware and helpers to tag log lines
// with the id of the deletion they belong to.
package logger

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey struct{}

type responseData struct {
	status int
	size   int
}

type loggingResponseWriter struct {
	http.ResponseWriter
	responseData *responseData
}

// Log is the process-wide logger. Until Init is called it discards output.
var Log = zap.NewNop().Sugar()

// Write records the number of body bytes sent.
func (r *loggingResponseWriter) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.responseData.size += size
	return size, err
}

// WriteHeader records the status code sent.
func (r *loggingResponseWriter) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.responseData.status = statusCode
}

// InitOption tunes the logger built by Init.
type InitOption func(*zap.Config)

// WithJSONEncoding switches to the production JSON encoder, which is what
// CloudWatch ingests best.
func WithJSONEncoding() InitOption {
	return func(cfg *zap.Config) {
		production := zap.NewProductionConfig()
		cfg.Encoding = production.Encoding
		cfg.EncoderConfig = production.EncoderConfig
		cfg.Development = false
	}
}

// Init replaces Log with a logger at the given level.
func Init(level string, opts ...InitOption) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	for _, opt := range opts {
		opt(&cfg)
	}

	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes any buffered log entries.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}

// WithDeletionID returns a context carrying a fresh deletion id.
func WithDeletionID(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, uuid.NewString())
}

// FromContext returns Log tagged with the deletion id stored in ctx, if any.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return Log.With("deletion_id", id)
	}

	return Log
}

// WithLoggingHTTPMiddleware logs method, uri, status, duration and size of
// every request.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	logFn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		responseData := &responseData{}
		lw := loggingResponseWriter{
			ResponseWriter: w,
			responseData:   responseData,
		}
		h.ServeHTTP(&lw, r)

		Log.Infoln(
			"uri", r.RequestURI,
			"method", r.Method,
			"status", responseData.status,
			"duration", time.Since(start),
			"size", responseData.size,
		)
	}

	return http.HandlerFunc(logFn)
}
