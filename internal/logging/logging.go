// Package logging configures logrus for the command-line tools.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Init configures the standard logrus logger with the given level and
// format ("text" or "json") and returns it.
func Init(level, format string) (*log.Logger, error) {
	logger := log.StandardLogger()
	if err := Configure(logger, level, format, os.Stderr); err != nil {
		return nil, err
	}
	return logger, nil
}

// Configure applies level, format and output to logger.
func Configure(logger *log.Logger, level, format string, out io.Writer) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		logger.SetFormatter(&log.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
		})
	}
	logger.SetLevel(lvl)
	logger.SetOutput(out)
	return nil
}

// Discard returns a logger that writes nothing.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}
