package config

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NamedLogger creates a logger whose entries are prefixed with name.
func NamedLogger(name string) *logrus.Logger {
	return &logrus.Logger{
		Out: os.Stderr,
		Formatter: &NamedTextFormatter{
			Name: name,
			TextFormatter: logrus.TextFormatter{
				DisableTimestamp: true,
			},
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}
}

// NamedTextFormatter is a text formatter tagging messages with a logger name.
type NamedTextFormatter struct {
	logrus.TextFormatter
	Name string
}

// Format renders a single log entry.
func (f *NamedTextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if f.Name != "" {
		entry.Message = fmt.Sprintf("[%s] %s", f.Name, entry.Message)
	}
	return f.TextFormatter.Format(entry)
}

// ConfigureLogger sets the level of l from a level name and silences it
// when quiet is set.
func ConfigureLogger(l *logrus.Logger, level string, quiet bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(lvl)
	if quiet {
		l.SetOutput(io.Discard)
	}
	return nil
}
