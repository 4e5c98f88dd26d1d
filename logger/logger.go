package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	InfoLogger  = logrus.New()
	WarnLogger  = logrus.New()
	ErrorLogger = logrus.New()
)

// InitLoggers points the three loggers at stdout and a rotated log file.
// LOG_FILE overrides the default location; an unwritable directory falls back to stdout only.
func InitLoggers() {
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "logs/reservation.log"
	}

	var out io.Writer = os.Stdout
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err == nil {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
	}

	configure(InfoLogger, out, logrus.InfoLevel)
	configure(WarnLogger, out, logrus.WarnLevel)
	configure(ErrorLogger, out, logrus.ErrorLevel)
}

func configure(l *logrus.Logger, out io.Writer, level logrus.Level) {
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	l.SetLevel(level)
}
