// Package logger builds the service's zap.Logger from config.
package logger

import (
	"fmt"
	"io"
	"os"

	"camRelay/api/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a JSON logger at the configured level. Output goes to stderr, or
// to a rotated file when conf.File is set.
func New(conf config.LogConfig) (*zap.Logger, io.Closer, error) {
	level, err := zapcore.ParseLevel(conf.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	var (
		sink   zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
		closer io.Closer           = nopCloser{}
	)

	if conf.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   conf.File,
			MaxSize:    conf.MaxSizeMB,
			MaxBackups: conf.MaxBackups,
			MaxAge:     conf.MaxAgeDays,
			Compress:   true,
		}
		sink = zapcore.AddSync(rotator)
		closer = rotator
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		sink,
		level,
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
