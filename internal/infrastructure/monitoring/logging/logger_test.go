package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: "debug", Format: format, OutputPaths: []string{"stdout"}})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_BadOutputPath(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/sub/log.txt"}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestZapLogger_WritesTypedFields(t *testing.T) {
	l, logs := newObservedLogger()

	l.Info("record extracted",
		Profile("caelo"),
		JobID("job-1"),
		Int("fields", 31),
		Int64("bytes", 2048),
		Float64("ratio", 0.5),
		Bool("cached", false),
		Duration("took", 3*time.Millisecond),
		Strings("fallbacks", []string{"density", "agw"}),
		Err(errors.New("boom")),
		Any("extra", map[string]int{"a": 1}),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "record extracted", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "caelo", ctx["profile"])
	assert.Equal(t, "job-1", ctx["job_id"])
	assert.Equal(t, int64(31), ctx["fields"])
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, []interface{}{"density", "agw"}, ctx["fallbacks"])
}

func TestZapLogger_Levels(t *testing.T) {
	l, logs := newObservedLogger()
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	require.Equal(t, 4, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[2].Level)
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	l, logs := newObservedLogger()
	child := l.Named("worker").With(String("component", "consumer"))
	child.Info("started")

	entry := logs.All()[0]
	assert.Equal(t, "worker", entry.LoggerName)
	assert.Equal(t, "consumer", entry.ContextMap()["component"])
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
	})
	assert.Equal(t, l, l.With(String("a", "b")))
	assert.Equal(t, l, l.Named("n"))
}

func TestSetLevel(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "info", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	zl := l.(*zapLogger)
	child := l.With(String("k", "v")).Named("child").(*zapLogger)

	assert.False(t, zl.z.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, SetLevel(l, "debug"))
	assert.True(t, zl.z.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, child.z.Core().Enabled(zapcore.DebugLevel), "children share the level")

	assert.False(t, SetLevel(NewNopLogger(), "debug"))
	observed, _ := newObservedLogger()
	assert.False(t, SetLevel(observed, "debug"))
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	t.Cleanup(func() { SetDefault(orig) })

	l, _ := newObservedLogger()
	SetDefault(l)
	assert.Equal(t, l, Default())

	SetDefault(nil)
	assert.Equal(t, l, Default(), "nil must not replace the default")
}

//Personal.AI order the ending
