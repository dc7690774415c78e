package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. Packages log through it or
// through an entry derived from it with WithField.
var Logger = logrus.New()

// Setup configures Logger. Level is one of TRACE, DEBUG, INFO, WARN or ERROR,
// format is text or json and output is stdout, stderr or a file path.
func Setup(level, format, output string) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	Logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		Logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	switch output {
	case "", "stdout":
		Logger.SetOutput(os.Stdout)
	case "stderr":
		Logger.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}

		Logger.SetOutput(f)

		return f, nil
	}

	return nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
