package config

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger. The returned closer flushes the rotating
// log file, if any.
func NewLogger(cfg *Config) (*logrus.Logger, io.Closer) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.LogFile == "" {
		logger.SetOutput(os.Stdout)
		return logger, nopCloser{}
	}

	lumberjackLog := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: 5,
		LocalTime:  true,
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, lumberjackLog))
	return logger, lumberjackLog
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
