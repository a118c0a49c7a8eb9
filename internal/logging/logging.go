// Package logging builds the logrus logger shared by every component.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options select the logger's output.
type Options struct {
	Level string
	// JSON switches to the JSON formatter used in production.
	JSON bool
	// Output defaults to stderr; stdout is reserved for the MCP protocol.
	Output io.Writer
}

// New returns a configured logger. An unknown level falls back to info and
// is reported through the logger itself.
func New(opts Options) *logrus.Logger {
	l := logrus.New()
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)
	if opts.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
		defer l.WithField("level", opts.Level).Warn("Unknown log level, using info")
	}
	l.SetLevel(level)
	return l
}

// Component returns a logger tagged with the component name.
func Component(l logrus.FieldLogger, name string) logrus.FieldLogger {
	return l.WithField("component", name)
}
