// Package obslog provides structured logging for the platform: an slog
// handler backed by lumberjack rotation, selectable JSON/text output,
// plus an ALOG audit helper for the per-trade/per-slot failure trail
// ("the offending slot is left at zero and an ALOG is emitted").
package obslog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogMask bits gate which audit categories setup.logMask enables.
const (
	MaskTrace   = 1 << 0
	MaskAlert   = 1 << 1
	MaskWarning = 1 << 2
	MaskError   = 1 << 3
	MaskAll     = MaskTrace | MaskAlert | MaskWarning | MaskError
)

// Config configures the process-wide Logger, extended with LogMask for
// the run's setup.logMask bitmask (0-15).
type Config struct {
	Level      string `toml:"level" default:"info"`
	Format     string `toml:"format" default:"json"`
	Output     string `toml:"output" default:"stdout"`
	FilePath   string `toml:"file_path" default:"logs/ore.log"`
	MaxSize    int    `toml:"max_size" default:"100"`
	MaxBackups int    `toml:"max_backups" default:"10"`
	MaxAge     int    `toml:"max_age" default:"30"`
	Compress   bool   `toml:"compress" default:"true"`
	WithCaller bool   `toml:"with_caller" default:"true"`
	LogMask    int    `toml:"log_mask" default:"15"`
}

// Logger wraps an *slog.Logger with the run's active log-mask.
type Logger struct {
	slog    *slog.Logger
	logMask int
}

var global *Logger

// Init builds the process-wide Logger from cfg and sets it as the default.
func Init(cfg Config) (*Logger, error) {
	var handler slog.Handler
	var output io.Writer

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	switch cfg.Output {
	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, err
		}
		output = fileWriter
	case "both":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, err
		}
		output = io.MultiWriter(os.Stdout, fileWriter)
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.WithCaller,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	mask := cfg.LogMask
	if mask == 0 {
		mask = MaskAll
	}
	l := &Logger{slog: slog.New(handler), logMask: mask}
	global = l
	slog.SetDefault(l.slog)
	return l, nil
}

// Get returns the process-wide Logger, defaulting to an unrotated
// stdout/MaskAll logger if Init was never called.
func Get() *Logger {
	if global == nil {
		return &Logger{slog: slog.Default(), logMask: MaskAll}
	}
	return global
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.slog.DebugContext(ctx, msg, args...)
}
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.slog.WarnContext(ctx, msg, args...)
}
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.slog.ErrorContext(ctx, msg, args...)
}

// ALOG records a per-trade/per-slot audit entry: a calculator failure that
// leaves its cube slot at zero but does not abort the overall run.
// It is gated by MaskAlert so a run configured with logMask excluding
// alerts stays silent on recoverable per-trade faults.
func (l *Logger) ALOG(ctx context.Context, tradeID string, format string, args ...any) {
	if l.logMask&MaskAlert == 0 {
		return
	}
	l.slog.WarnContext(ctx, "ALOG", slog.String("trade_id", tradeID), slog.String("detail", fmt.Sprintf(format, args...)))
}
