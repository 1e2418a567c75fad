package logging

import (
	"io"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotateConfig controls the on-disk copy of the log stream.
type RotateConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// FileWriter returns a size-rotated writer for cfg.Path, or nil when no path
// is configured. Rotated files are gzip compressed.
func FileWriter(cfg RotateConfig) io.WriteCloser {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}
