// Package observability provides the structured logging and metrics that
// every long-lived moxxy component (supervisor, brain, skill manager,
// scheduler, control plane) is handed at construction time, rather than
// reading from an ambient global.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Logger wraps slog with secret redaction so the internal token and vault
// contents can never end up in a log line (spec.md §5 "never logged").
type Logger struct {
	logger  *slog.Logger
	redacts []*regexp.Regexp
}

// Config configures the logging handler.
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // text or json
	Output io.Writer // defaults to os.Stdout
}

// DefaultRedactPatterns catches common secret shapes in log arguments.
var DefaultRedactPatterns = []string{
	`(?i)(api[_-]?key|apikey|token|secret|password|passwd)[\s:=]+["']?([a-zA-Z0-9_\-./+]{12,})["']?`,
	`sk-ant-[a-zA-Z0-9_-]{20,}`,
	`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`,
}

// NewLogger builds a Logger from config, defaulting to info/text/stdout.
func NewLogger(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	redacts := make([]*regexp.Regexp, 0, len(DefaultRedactPatterns))
	for _, pattern := range DefaultRedactPatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			redacts = append(redacts, re)
		}
	}
	return &Logger{logger: slog.New(handler), redacts: redacts}
}

// Component returns a child logger tagged with a component name, matching
// the teacher's `slog.Default().With("component", name)` idiom.
func (l *Logger) Component(name string) *Logger {
	if l == nil {
		return NewLogger(Config{}).Component(name)
	}
	return &Logger{logger: l.logger.With("component", name), redacts: l.redacts}
}

func (l *Logger) redact(args []any) []any {
	out := make([]any, len(args))
	copy(out, args)
	for i, a := range out {
		s, ok := a.(string)
		if !ok {
			continue
		}
		for _, re := range l.redacts {
			s = re.ReplaceAllString(s, "$1=[REDACTED]")
		}
		out[i] = s
	}
	return out
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, l.redact(args)...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, l.redact(args)...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, l.redact(args)...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, l.redact(args)...) }

// Slog returns the underlying *slog.Logger for handing to third-party
// libraries that accept one directly.
func (l *Logger) Slog() *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l.logger
}

type ctxKey string

const loggerCtxKey ctxKey = "moxxy_logger"

// WithContext attaches a logger to a context for handlers that only receive ctx.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, l)
}

// FromContext recovers a logger attached with WithContext, falling back to
// a default logger so callers never need a nil check.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey).(*Logger); ok && l != nil {
		return l
	}
	return NewLogger(Config{})
}
