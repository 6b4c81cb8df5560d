package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormLogger routes gorm's logging to zap and mirrors info, warn and error
// messages as client events.
type gormLogger struct {
	log    *zap.Logger
	level  logger.LogLevel
	slow   time.Duration
	events *emitter
}

func newGormLogger(log *zap.Logger, level string, slow time.Duration, events *emitter) *gormLogger {
	return &gormLogger{log: log.Named("gorm"), level: parseLevel(level), slow: slow, events: events}
}

func parseLevel(s string) logger.LogLevel {
	switch strings.ToLower(s) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) message(kind EventKind, msg string, data ...interface{}) string {
	text := fmt.Sprintf(msg, data...)
	l.events.emit(Event{Kind: kind, Timestamp: time.Now(), Message: text})
	return text
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	text := l.message(EventInfo, msg, data...)
	if l.level >= logger.Info {
		l.log.Info(text)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	text := l.message(EventWarn, msg, data...)
	if l.level >= logger.Warn {
		l.log.Warn(text)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	text := l.message(EventError, msg, data...)
	if l.level >= logger.Error {
		l.log.Error(text)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error("query failed", zap.Error(err), zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed))
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		sql, rows := fc()
		l.log.Warn("slow query", zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed), zap.Duration("threshold", l.slow))
	case l.level >= logger.Info:
		sql, rows := fc()
		l.log.Debug("query", zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed))
	}
}
