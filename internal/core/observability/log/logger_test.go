package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestChildSharesLevel(t *testing.T) {
	l := NewNop()
	child := l.With(String("component", "test"))

	l.SetLevel(LevelError)
	assert.Equal(t, LevelError, child.GetLevel())
}

func TestToZapFields(t *testing.T) {
	fields := toZapFields(
		String("component", "engine"),
		Int("bones", 3),
		Duration("interval", time.Second),
		EntityID(7),
		Error(errors.New("boom")),
	)
	assert.Len(t, fields, 5)
	assert.Equal(t, zapcore.StringType, fields[0].Type)
	assert.Equal(t, zapcore.Int64Type, fields[1].Type)
	assert.Equal(t, zapcore.DurationType, fields[2].Type)
	assert.Equal(t, "object_id", fields[3].Key)
	assert.Equal(t, zapcore.Uint64Type, fields[3].Type)
	assert.Equal(t, "error", fields[4].Key)
	assert.Equal(t, zapcore.ErrorType, fields[4].Type)
}
