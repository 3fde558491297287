// Package statuslog provides the process-wide structured logger used by
// internal/store, internal/statusmanager, and cmd/statusmanagerd.
package statuslog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(os.Stderr)

	level := logrus.InfoLevel
	if v := os.Getenv("STATUSMANAGER_LOG_LEVEL"); v != "" {
		if parsed, err := logrus.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	l.SetLevel(level)
	return l
}

// For returns a field-scoped logger for the named component, e.g.
// statuslog.For("alloc").WithField("credentialId", id).Info("allocated").
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}

// SetOutput redirects the base logger; tests use this to capture output.
func SetOutput(w interface{ Write([]byte) (int, error) }) {
	base.SetOutput(w)
}
