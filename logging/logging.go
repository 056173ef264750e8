// Package logging configures the process-wide logrus logger used across the
// simulation engine.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log level, format and destination.
type Config struct {
	Level      string `json:"level" yaml:"level"`           // debug, info, warn, error
	Format     string `json:"format" yaml:"format"`         // text or json
	Output     string `json:"output" yaml:"output"`         // stdout, file, both
	Directory  string `json:"directory" yaml:"directory"`   // log directory when writing files
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// New builds a configured logrus logger. Unknown levels fall back to info,
// unknown outputs to stdout.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	switch cfg.Output {
	case "file":
		logger.SetOutput(fileWriter(cfg))
	case "both":
		logger.SetOutput(io.MultiWriter(os.Stdout, fileWriter(cfg)))
	default:
		logger.SetOutput(os.Stdout)
	}

	return logger
}

// Component returns an entry tagged with a component field, the convention
// used by every engine package.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

func fileWriter(cfg Config) io.Writer {
	dir := cfg.Directory
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stdout
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, "quantsim.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
}
