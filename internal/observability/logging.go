package observability

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggingParams configures the process-wide logrus logger.
type LoggingParams struct {
	Level      string
	FormatJSON bool
	// FileName, when set, adds a rotated log file next to stdout.
	FileName string
	Service  string
}

// SetupLogging configures the standard logrus logger and returns an entry tagged with the
// service name.
func SetupLogging(params LoggingParams) *logrus.Entry {
	logger := logrus.StandardLogger()
	if params.FormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.SetLevel(ParseLevel(params.Level))

	var out io.Writer = os.Stdout
	if params.FileName != "" {
		fileName := params.FileName
		if !strings.HasSuffix(fileName, ".log") {
			fileName += ".log"
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:  fileName,
			MaxSize:   50, // megabytes
			LocalTime: false,
			Compress:  true,
		})
	}
	logger.SetOutput(out)

	return logger.WithField("service", params.Service)
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
