package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"

	"campus_wayfinder/internal/config"
)

// Setup initializes Logrus writing to a rotating file, and to stdout too
// when asked. It returns the rotator so the caller can close it.
func Setup(cfg config.LogSettings) io.Closer {
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    10, // megabytes
		MaxBackups: 7,
		MaxAge:     7, // days
		Compress:   true,
	}

	var out io.Writer = rotator
	if cfg.Stdout {
		out = io.MultiWriter(rotator, os.Stdout)
	}
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		logrus.WithField("level", cfg.Level).Warn("unknown log level, using info")
	}
	logrus.SetLevel(level)
	return rotator
}
