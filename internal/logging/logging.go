// Package logging constructs the prefixed loggers used across the tool,
// optionally teeing output into a size-rotated log file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure log destinations.
type Options struct {
	// File enables rotating file output at the given path when set.
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Quiet drops stderr output, keeping only the file (if any).
	Quiet bool
}

// New returns a logger with the given bracketed prefix, e.g. "[sync] ".
func New(prefix string, opts Options) *log.Logger {
	var writers []io.Writer
	if !opts.Quiet {
		writers = append(writers, os.Stderr)
	}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		})
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 1:
		out = writers[0]
	default:
		if len(writers) > 1 {
			out = io.MultiWriter(writers...)
		}
	}

	return log.New(out, prefix, log.LstdFlags)
}
