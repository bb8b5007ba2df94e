// Package logger is the process log used by the build pipeline and the tools.
package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

var (
	mu     sync.Mutex
	sugar  *zap.SugaredLogger
	closer func() error
)

// Init replaces the process logger. An empty File logs to stderr only.
func Init(cfg Config) error {
	var lvl zapcore.Level
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return fmt.Errorf("logger: bad level %q: %w", cfg.Level, err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), lvl),
	}
	var fileCloser func() error
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(lj), lvl))
		fileCloser = lj.Close
	}
	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	mu.Lock()
	defer mu.Unlock()
	if sugar != nil {
		_ = sugar.Sync()
	}
	if closer != nil {
		_ = closer()
	}
	sugar = l.Sugar()
	closer = fileCloser
	return nil
}

// Use installs an already built zap logger, mainly for tests.
func Use(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	sugar = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
	closer = nil
}

func get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		l, err := zap.NewDevelopment(zap.AddCallerSkip(1))
		if err != nil {
			l = zap.NewNop()
		}
		sugar = l.Sugar()
	}
	return sugar
}

// L returns the structured logger for callers that want fields.
func L() *zap.Logger {
	return get().Desugar()
}

func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		return nil
	}
	err := sugar.Sync()
	if closer != nil {
		if cerr := closer(); err == nil {
			err = cerr
		}
		closer = nil
	}
	return err
}

func LogDebug(format string, args ...any) {
	get().Debugf(format, args...)
}

func LogInfo(format string, args ...any) {
	get().Infof(format, args...)
}

func LogWarn(format string, args ...any) {
	get().Warnf(format, args...)
}

func LogError(format string, args ...any) {
	get().Errorf(format, args...)
}
