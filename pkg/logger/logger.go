// Package logger provides the process-wide structured logger.
package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	instance *log.Logger
	once     sync.Once
)

// Get returns the singleton logger instance.
func Get() *log.Logger {
	once.Do(func() {
		instance = log.NewWithOptions(os.Stderr, log.Options{
			Level:           log.InfoLevel,
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
		})
	})
	return instance
}

// ForImage returns a sub-logger scoped to an image reference, so every
// lifecycle message identifies which container it belongs to.
func ForImage(imageRef string) *log.Logger {
	return Get().With("image", imageRef)
}

// SetLevel sets the log level from a string, defaulting to info for unknown
// values.
func SetLevel(level string) {
	var logLevel log.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = log.DebugLevel
	case "info":
		logLevel = log.InfoLevel
	case "warn", "warning":
		logLevel = log.WarnLevel
	case "error":
		logLevel = log.ErrorLevel
	case "fatal":
		logLevel = log.FatalLevel
	default:
		logLevel = log.InfoLevel
	}
	Get().SetLevel(logLevel)
}
