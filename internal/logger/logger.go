package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a JSON logrus.Logger writing to stdout.
func New(env string) *logrus.Logger {
	return NewWithOutput(env, os.Stdout)
}

// NewWithOutput is New with a custom sink; the CLI logs to stderr so its
// stdout stays machine readable.
func NewWithOutput(env string, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(parseLevel(env))
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	return log
}

func parseLevel(env string) logrus.Level {
	switch strings.ToLower(env) {
	case "local", "dev":
		return logrus.DebugLevel
	case "test":
		return logrus.WarnLevel
	}
	return logrus.InfoLevel
}
