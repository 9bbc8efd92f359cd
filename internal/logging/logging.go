// Package logging routes the standard logger to stdout and, when a log file
// is configured, to a size-rotated file as well.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mscandco/distribution-api/internal/config"
)

// Setup installs the process-wide log output and returns the writer so the
// HTTP access log can share it. The returned func flushes and closes the
// rotating file.
func Setup(cfg config.LogConfig) (io.Writer, func()) {
	writers := []io.Writer{os.Stdout}
	closeFn := func() {}

	if cfg.File != "" {
		dir := filepath.Dir(cfg.File)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: cannot create log directory %s: %v, using stdout only\n", dir, err)
		} else {
			rotating := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   true,
			}
			writers = append(writers, rotating)
			closeFn = func() { _ = rotating.Close() }
		}
	}

	out := io.MultiWriter(writers...)
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return out, closeFn
}
