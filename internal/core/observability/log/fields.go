package log

import (
	"time"
)

// Log is the structured logger every component receives.
type Log interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	With(fields ...Field) Log

	SetLevel(level Level)
	GetLevel() Level
}

type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string onto a Level. Unknown names fall back to info.
func ParseLevel(name string) Level {
	switch name {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field is one key/value pair attached to an entry.
type Field struct {
	Key   string
	Kind  FieldKind
	Value any
}

type FieldKind uint8

const (
	StringKind FieldKind = iota
	IntKind
	Uint64Kind
	DurationKind
	ErrorKind
)

func String(key, val string) Field {
	return Field{Key: key, Kind: StringKind, Value: val}
}

func Int(key string, val int) Field {
	return Field{Key: key, Kind: IntKind, Value: val}
}

func Uint64(key string, val uint64) Field {
	return Field{Key: key, Kind: Uint64Kind, Value: val}
}

func Duration(key string, val time.Duration) Field {
	return Field{Key: key, Kind: DurationKind, Value: val}
}

// EntityID tags an entry with the tracked entity it concerns.
func EntityID(id uint64) Field {
	return Uint64("object_id", id)
}

func Error(err error) Field {
	return Field{Key: "error", Kind: ErrorKind, Value: err}
}
