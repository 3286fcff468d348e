package logger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"campus_wayfinder/internal/config"
)

func TestGormLogger_Trace(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := NewGormLogger(base, true)
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, nil)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, "SELECT 1", hook.LastEntry().Data["sql"])

	l.Trace(ctx, time.Now(), sql, errors.New("syntax error"))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	hook.Reset()
	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
}

func TestGormLogger_QuietByDefault(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := NewGormLogger(base, false)

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	l.Info(context.Background(), "migrating %s", "sites")
	assert.Empty(t, hook.Entries)

	silent := l.LogMode(gormlogger.Silent)
	silent.Error(context.Background(), "boom")
	assert.Empty(t, hook.Entries)

	l.Error(context.Background(), "boom %d", 1)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "boom 1", hook.LastEntry().Message)
}

func TestSetup(t *testing.T) {
	prevOut, prevLevel := logrus.StandardLogger().Out, logrus.GetLevel()
	t.Cleanup(func() {
		logrus.SetOutput(prevOut)
		logrus.SetLevel(prevLevel)
	})

	closer := Setup(config.LogSettings{File: filepath.Join(t.TempDir(), "app.log"), Level: "warning"})
	defer closer.Close()
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	closer2 := Setup(config.LogSettings{File: filepath.Join(t.TempDir(), "app.log"), Level: "loud"})
	defer closer2.Close()
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
