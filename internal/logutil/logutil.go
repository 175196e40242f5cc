// Package logutil builds the zap loggers used by varcall.
package logutil

import (
	"io"
	"os"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// run logs are rotated past this size, in megabytes
	maxLogSizeMB  = 256
	maxLogBackups = 3
)

// Logger is a zap logger together with the file sinks it owns
type Logger struct {
	*zap.Logger
	files []*lumberjack.Logger
}

// NewLogger returns a logger writing human readable lines to console and
// JSON lines to every file. A nil console discards console output.
func NewLogger(level string, console io.Writer, files ...string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	enabled := zap.NewAtomicLevelAt(lvl)

	var cores []zapcore.Core
	if console != nil {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), enabled))
	}

	l := &Logger{}
	for _, path := range files {
		// lumberjack opens lazily, surface permission problems now
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cerror.WrapError(cerror.ErrLogFileOpen, err, path)
		}
		f.Close()

		sink := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
		}
		l.files = append(l.files, sink)
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(sink), enabled))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...))
	return l, nil
}

// NewConsole returns a logger writing to stderr only.
func NewConsole(level string) (*Logger, error) {
	return NewLogger(level, os.Stderr)
}

// Close flushes the logger and closes its files.
func (l *Logger) Close() error {
	err := l.Logger.Sync()
	if err != nil && len(l.files) == 0 {
		// syncing a terminal fails on some platforms
		err = nil
	}
	for _, f := range l.files {
		err = multierr.Append(err, f.Close())
	}
	return err
}
