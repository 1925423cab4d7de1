package contract

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu  sync.RWMutex
	logger = newLogger(zapcore.InfoLevel)
)

// newLogger builds a console logger writing to stderr so stdout stays free for reports.
func newLogger(level zapcore.Level) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	encoderCfg.CallerKey = ""
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}

// ParseLogLevel maps a level name (debug, info, warn, error) to a zap level.
func ParseLogLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q. must be debug, info, warn, error", s)
	}
	return level, nil
}

// SetLogLevel replaces the process logger with one at the given level.
func SetLogLevel(level zapcore.Level) {
	logMu.Lock()
	defer logMu.Unlock()
	_ = logger.Sync()
	logger = newLogger(level)
}

// SetLogger replaces the process logger. Tests use it with zaptest/observer cores.
func SetLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l
}

// Logger returns the process logger.
func Logger() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	Logger().Error(msg, zap.Error(err))
	_ = Logger().Sync()
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	Logger().Warn(msg, zap.Error(err))
}
