package logx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// Options configures NewLogger.
type Options struct {
	Verbose bool // log at debug level instead of info

	// Console receives human-readable output, default os.Stderr.
	Console io.Writer

	// File, if set, also receives JSON lines, rotated at MaxSizeMB.
	File       string
	MaxSizeMB  int // default 50
	MaxBackups int // default 3
}

// NewLogger returns a zerolog logger writing to the console and, if
// configured, a rotated log file.
func NewLogger(opts Options) zerolog.Logger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	var out io.Writer = zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
	}
	if opts.File != "" {
		if opts.MaxSizeMB <= 0 {
			opts.MaxSizeMB = 50
		}
		if opts.MaxBackups <= 0 {
			opts.MaxBackups = 3
		}
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		})
	}
	zerolog.CallerMarshalFunc = shortCaller

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Caller().Logger()
}

// shortCaller keeps only the file name, padded for alignment.
func shortCaller(pc uintptr, file string, line int) string {
	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	return fmt.Sprintf("%-24s", fmt.Sprintf("%s:%d", short, line))
}
