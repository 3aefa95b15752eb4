package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the application logger. Development gets human readable text,
// everything else JSON lines.
func NewLogger(env, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if env == "development" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		logger.WithField("level", level).Warn("unknown log level, using info")
	}
	logger.SetLevel(lvl)

	logger.WithFields(logrus.Fields{"env": env, "level": lvl.String()}).Info("logger initialized")
	return logger
}

// Discard returns a logger that drops everything. Used by tests and tools.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
