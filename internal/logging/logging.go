// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/genereveal-server/internal/domain"
)

// New creates a logrus logger writing to stderr. Unknown levels fall back to
// info; any format other than "text" is JSON.
func New(config domain.LoggingConfig) *logrus.Logger {
	return NewWithOutput(config, os.Stderr)
}

// NewWithOutput is New with an explicit destination
func NewWithOutput(config domain.LoggingConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if strings.EqualFold(config.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
