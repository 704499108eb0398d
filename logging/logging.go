// Package logging builds the zap logger used by every component.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/EgorPopelyaev/polkadot/config"
)

// New builds a logger from c. Output is a comma-separated list of stdout,
// stderr or file paths; files rotate through lumberjack when rotation is
// enabled. The returned close func releases the files once the logger has
// been synced.
func New(c config.LogConfig) (*zap.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(c.Level.String())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidLogLevel, c.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	switch strings.ToLower(c.Format) {
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "console", "":
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidLogFormat, c.Format)
	}

	var files []io.Closer
	closeFiles := func() error {
		var errs []error
		for _, f := range files {
			errs = append(errs, f.Close())
		}
		return errors.Join(errs...)
	}

	outputs := strings.Split(c.Output, ",")
	cores := make([]zapcore.Core, 0, len(outputs))
	for _, out := range outputs {
		ws, closer, err := sink(strings.TrimSpace(out), c.Rotation)
		if err != nil {
			closeFiles()
			return nil, nil, err
		}
		if closer != nil {
			files = append(files, closer)
		}
		cores = append(cores, zapcore.NewCore(encoder, ws, level))
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel))

	if len(c.Fields) > 0 {
		keys := make([]string, 0, len(c.Fields))
		for k := range c.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]zap.Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, zap.String(k, c.Fields[k]))
		}
		logger = logger.With(fields...)
	}
	return logger, closeFiles, nil
}

// sink opens one output. The closer is nil for the standard streams.
func sink(out string, rotation config.LogRotationConfig) (zapcore.WriteSyncer, io.Closer, error) {
	switch strings.ToLower(out) {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout), nil, nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil, nil
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	if rotation.Enabled {
		lj := &lumberjack.Logger{
			Filename:   out,
			MaxSize:    max(rotation.MaxSize, 1),
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAge,
			Compress:   rotation.Compress,
		}
		return zapcore.AddSync(lj), lj, nil
	}

	f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return zapcore.AddSync(f), f, nil
}
