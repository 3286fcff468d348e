package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SlowQueryThreshold is the duration above which a statement is logged at Warn.
const SlowQueryThreshold = 200 * time.Millisecond

// GormLogger routes GORM's logging through Logrus.
type GormLogger struct {
	entry *logrus.Entry
	level gormlogger.LogLevel
}

// NewGormLogger logs statements at Debug when logSQL is set; otherwise only
// slow statements and errors are logged.
func NewGormLogger(base *logrus.Logger, logSQL bool) *GormLogger {
	level := gormlogger.Warn
	if logSQL {
		level = gormlogger.Info
	}
	return &GormLogger{entry: logrus.NewEntry(base).WithField("component", "gorm"), level: level}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.entry.WithContext(ctx).Infof(msg, args...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.entry.WithContext(ctx).Warnf(msg, args...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.entry.WithContext(ctx).Errorf(msg, args...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := logrus.Fields{
		"elapsed_ms": float64(elapsed.Microseconds()) / 1000,
		"rows":       rows,
		"sql":        sql,
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		l.entry.WithContext(ctx).WithFields(fields).WithError(err).Error("query failed")
	case elapsed > SlowQueryThreshold && l.level >= gormlogger.Warn:
		l.entry.WithContext(ctx).WithFields(fields).Warn(fmt.Sprintf("slow query >= %v", SlowQueryThreshold))
	case l.level >= gormlogger.Info:
		l.entry.WithContext(ctx).WithFields(fields).Debug("query")
	}
}
