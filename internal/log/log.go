// Package log is the process-wide logger. The agent, the helper and the CLI
// verbs each tag their lines with a role so logs from both daemons can share
// one destination.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/paularlott/logger"
	logslog "github.com/paularlott/logger/slog"
)

var (
	mu            sync.RWMutex
	defaultLogger = newLogger("info", "console", os.Stderr)
)

func newLogger(level, format string, w io.Writer) logger.Logger {
	return logslog.New(logslog.Config{
		Level:  level,
		Format: format,
		Writer: w,
	})
}

// Configure replaces the process logger. Output goes to stderr so CLI verbs
// can keep stdout for their own tables.
func Configure(role, level, format string) {
	SetLogger(newLogger(level, format, os.Stderr).With("role", role))
}

// SetLogger installs l as the process logger.
func SetLogger(l logger.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

func current() logger.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func Info(msg string, keysAndValues ...any) {
	current().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	current().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	current().Error(msg, keysAndValues...)
}

func Debug(msg string, keysAndValues ...any) {
	current().Debug(msg, keysAndValues...)
}
