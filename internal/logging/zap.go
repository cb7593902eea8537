package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerConfig controls the diagnostic logger. The operator-facing output
// goes through events; this logger carries HTTP and subprocess detail.
type LoggerConfig struct {
	Debug bool
	// File receives JSON lines with rotation. Empty disables the file sink.
	File  string
	RunID string
	// Console defaults to stderr.
	Console zapcore.WriteSyncer
}

// NewLogger builds a zap logger that tees a debug console core with an
// optional rotating JSON file core. Without Debug the console stays quiet
// since events already reach the operator.
func NewLogger(cfg LoggerConfig) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	var cores []zapcore.Core
	if cfg.Debug {
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		console := cfg.Console
		if console == nil {
			console = zapcore.Lock(os.Stderr)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), console, zap.DebugLevel))
	}

	if file := strings.TrimSpace(cfg.File); file != "" {
		fileCfg := encCfg
		fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    5,
			MaxBackups: 3,
			MaxAge:     14,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), sink, zap.DebugLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...)).Named("pwinstall")
	if cfg.RunID != "" {
		logger = logger.With(zap.String("run_id", cfg.RunID))
	}
	return logger
}
