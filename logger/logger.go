// Package logger wraps zap for structured logging.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log     *zap.Logger
	once    sync.Once
	file    *os.File
	logFile = "reconcile.log"
	level   = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// SetLogPath changes the log file. It has no effect once the logger is built.
func SetLogPath(path string) {
	if path != "" {
		logFile = path
	}
}

// SetLevel parses and applies a level name such as "debug" or "warn". The
// level can be changed at any time.
func SetLevel(name string) error {
	if name == "" {
		return nil
	}
	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(l)
	return nil
}

// InitLogger builds the process logger: a console encoder on stdout teed with
// a JSON encoder on the log file. Without a writable log file only the
// console output remains.
func InitLogger() {
	once.Do(func() {
		consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level)}

		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err == nil {
			file = f
			fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
			cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(f), level))
		}

		log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
		if err != nil {
			log.Warn("log file unavailable, logging to console only", zap.String("path", logFile), zap.Error(err))
		}
	})
}

// GetLogger provides access to the initialized logger.
func GetLogger() *zap.Logger {
	if log == nil {
		InitLogger()
	}
	return log
}

// Sync flushes buffered logs before the application exits.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// ResetLogger closes the log file and allows the logger to be built again.
func ResetLogger() {
	Sync()
	if file != nil {
		_ = file.Close()
		file = nil
	}
	log = nil
	once = sync.Once{}
	level.SetLevel(zap.InfoLevel)
}
