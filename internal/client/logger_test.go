package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	testCases := map[string]logger.LogLevel{
		"silent": logger.Silent,
		"error":  logger.Error,
		"warn":   logger.Warn,
		"info":   logger.Info,
		"":       logger.Warn,
		"bogus":  logger.Warn,
	}
	for in, want := range testCases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newGormLogger(zap.New(core), "warn", 10*time.Millisecond, newEmitter())
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), fc, errors.New("boom"))
	l.Trace(ctx, time.Now(), fc, gorm.ErrRecordNotFound)
	l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
	l.Trace(ctx, time.Now(), fc, nil)

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "query failed", entries[0].Message)
		assert.Equal(t, "slow query", entries[1].Message)
	}

	logs.TakeAll()
	l.LogMode(logger.Silent).Trace(ctx, time.Now(), fc, errors.New("boom"))
	assert.Zero(t, logs.Len())
}

func TestGormLoggerEmitsEvents(t *testing.T) {
	events := newEmitter()
	var got []Event
	events.on(EventWarn, func(e Event) { got = append(got, e) })

	core, logs := observer.New(zapcore.DebugLevel)
	l := newGormLogger(zap.New(core), "silent", 0, events)
	l.Warn(context.Background(), "slow %s", "thing")
	l.Info(context.Background(), "ignored")

	if assert.Len(t, got, 1) {
		assert.Equal(t, "slow thing", got[0].Message)
	}
	assert.Zero(t, logs.Len(), "silent level still emits events but does not log")
}
