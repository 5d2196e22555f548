package log

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a zap logger with context hooks.
type Logger struct {
	zl *zap.Logger

	mu    sync.RWMutex
	hooks []Hook
}

var global atomic.Pointer[Logger]

//nolint:gochecknoinits // default logger.
func init() {
	global.Store(New(Config{Name: "shellstate"}))
}

// New builds a Logger from cfg. The trace hook is always installed.
func New(cfg Config) *Logger {
	return newLogger(cfg, writerFor(cfg))
}

// NewWithWriter builds a Logger writing to w regardless of cfg.Output.
func NewWithWriter(cfg Config, w io.Writer) *Logger {
	return newLogger(cfg, zapcore.AddSync(w))
}

func newLogger(cfg Config, ws zapcore.WriteSyncer) *Logger {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder

	switch cfg.Encoding {
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, ws, zap.NewAtomicLevelAt(level))

	opts := []zap.Option{}
	if cfg.Debug {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	zl := zap.New(core, opts...)
	if cfg.Name != "" {
		zl = zl.Named(cfg.Name)
	}

	l := &Logger{zl: zl}
	l.AddHook(HookFunc(traceFields))

	return l
}

func writerFor(cfg Config) zapcore.WriteSyncer {
	if cfg.Output == OutputFile && cfg.File.Path != "" {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxAge:     cfg.File.MaxAge,
			MaxBackups: cfg.File.MaxBackups,
			LocalTime:  cfg.File.LocalTime,
			Compress:   cfg.File.Compress,
		})
	}

	return zapcore.Lock(os.Stdout)
}

// SetGlobalLogger replaces the logger used by the package-level functions.
func SetGlobalLogger(l *Logger) {
	if l != nil {
		global.Store(l)
	}
}

// SetGlobalConfig rebuilds the global logger from cfg.
func SetGlobalConfig(cfg Config) {
	SetGlobalLogger(New(cfg))
}

// GetGlobalLogger returns the logger used by the package-level functions.
func GetGlobalLogger() *Logger {
	return global.Load()
}

// AddHook registers a hook applied to every subsequent entry.
func (l *Logger) AddHook(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hooks = append(l.hooks, h)
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, zapcore.DebugLevel, msg, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, zapcore.InfoLevel, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, zapcore.WarnLevel, msg, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, zapcore.ErrorLevel, msg, fields)
}

func (l *Logger) write(ctx context.Context, lvl zapcore.Level, msg string, fields []Field) {
	ce := l.zl.Check(lvl, msg)
	if ce == nil {
		return
	}

	l.mu.RLock()
	hooks := l.hooks
	l.mu.RUnlock()

	for _, h := range hooks {
		fields = h.Apply(ctx, msg, fields...)
	}

	ce.Write(fields...)
}

func Debug(ctx context.Context, msg string, fields ...Field) {
	global.Load().write(ctx, zapcore.DebugLevel, msg, fields)
}

func Info(ctx context.Context, msg string, fields ...Field) {
	global.Load().write(ctx, zapcore.InfoLevel, msg, fields)
}

func Warn(ctx context.Context, msg string, fields ...Field) {
	global.Load().write(ctx, zapcore.WarnLevel, msg, fields)
}

func Error(ctx context.Context, msg string, fields ...Field) {
	global.Load().write(ctx, zapcore.ErrorLevel, msg, fields)
}
