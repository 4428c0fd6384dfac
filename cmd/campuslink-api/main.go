// Package main is the entry point for the CampusLink directory server.
package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuslink/campuslink-server/cmd/campuslink-api/app"
	"github.com/campuslink/campuslink-server/internal/config"
)

// logLevel reads CAMPUSLINK_LOG_LEVEL, then LOG_LEVEL. Unknown values mean info.
func logLevel() slog.Level {
	v := viper.New()
	_ = v.BindEnv("log_level", config.EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")

	raw := strings.TrimSpace(v.GetString("log_level"))
	if raw == "" {
		return slog.LevelInfo
	}
	if strings.EqualFold(raw, "warning") {
		raw = "warn"
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		slog.Warn("Ignoring unknown log level", "value", raw)
		return slog.LevelInfo
	}
	return level
}

// spanHandler adds trace_id and span_id to records logged inside a span, so a
// slow status refresh can be found from its request log line.
type spanHandler struct {
	slog.Handler
}

func (h spanHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h spanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return spanHandler{h.Handler.WithAttrs(attrs)}
}

func (h spanHandler) WithGroup(name string) slog.Handler {
	return spanHandler{h.Handler.WithGroup(name)}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(spanHandler{slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})})
}

func main() {
	envErr := godotenv.Load()

	// stdout belongs to command output such as `version --format json`
	slog.SetDefault(newLogger(os.Stderr, logLevel()))

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", envErr)
	}

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
