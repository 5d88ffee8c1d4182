// Package logging wires the process logger to a size-rotated file under
// the brain root, optionally mirrored to stderr for verbose runs.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation policy for .brain/logs/brain.log.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 30
)

// Open returns a logger writing to <root>/.brain/logs/brain.log with
// rotation. When verbose is true every line is mirrored to stderr.
func Open(root string, verbose bool) *log.Logger {
	var w io.Writer = &lumberjack.Logger{
		Filename:   filepath.Join(root, ".brain", "logs", "brain.log"),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	if verbose {
		w = io.MultiWriter(w, os.Stderr)
	}
	return log.New(w, "", log.LstdFlags|log.LUTC)
}

// Discard returns a logger that drops everything. Quiet mode and tests
// use it in place of a file logger.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
