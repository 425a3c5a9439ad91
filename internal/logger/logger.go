package logger

import "KoordeDHT/internal/domain"

// Field is a structured key:value logging field.
type Field struct {
	Key string
	Val any
}

// Logger is the minimal structured-logging interface required throughout
// the ring, storage, client and server packages.
type Logger interface {
	Named(name string) Logger
	With(fields ...Field) Logger
	WithNode(n domain.Node) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// F is a concise helper to build a Field.
func F(key string, val any) Field { return Field{Key: key, Val: val} }

// FNode serializes a node reference into a readable structured field.
// A nil node (an unset successor/predecessor slot) is logged explicitly.
func FNode(key string, n *domain.Node) Field {
	if n == nil {
		return Field{Key: key, Val: nil}
	}
	return Field{
		Key: key,
		Val: map[string]any{
			"id":   n.ID.ToHexString(),
			"addr": n.Addr,
		},
	}
}

// FResource serializes a domain.Resource into a readable structured field,
// without leaking the full value at INFO level call sites that don't want it.
func FResource(key string, r domain.Resource) Field {
	return Field{
		Key: key,
		Val: map[string]any{
			"key":    r.Key.ToHexString(),
			"rawKey": r.RawKey,
		},
	}
}

// ----------------------------------------------------------------
// NopLogger is a no-op Logger, used when logging is disabled.
type NopLogger struct{}

func (l *NopLogger) Named(name string) Logger          { return l }
func (l *NopLogger) With(fields ...Field) Logger       { return l }
func (l *NopLogger) WithNode(n domain.Node) Logger     { return l }
func (l *NopLogger) Debug(msg string, fields ...Field) {}
func (l *NopLogger) Info(msg string, fields ...Field)  {}
func (l *NopLogger) Warn(msg string, fields ...Field)  {}
func (l *NopLogger) Error(msg string, fields ...Field) {}
