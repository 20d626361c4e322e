// Package log decorates a ports.Logger with fields bound once per
// component.
package log

import "github.com/bft-labs/tpmsrelay/internal/ports"

// Component returns a logger that prefixes every entry with the field
// component=name.
func Component(l ports.Logger, name string) ports.Logger {
	return With(l, ports.String("component", name))
}

// With returns a logger that prepends fields to every entry.
func With(l ports.Logger, fields ...ports.Field) ports.Logger {
	if b, ok := l.(*bound); ok {
		merged := make([]ports.Field, 0, len(b.fields)+len(fields))
		merged = append(merged, b.fields...)
		return &bound{next: b.next, fields: append(merged, fields...)}
	}
	return &bound{next: l, fields: fields}
}

type bound struct {
	next   ports.Logger
	fields []ports.Field
}

func (b *bound) join(fields []ports.Field) []ports.Field {
	if len(fields) == 0 {
		return b.fields
	}
	out := make([]ports.Field, 0, len(b.fields)+len(fields))
	return append(append(out, b.fields...), fields...)
}

func (b *bound) Debug(msg string, fields ...ports.Field) { b.next.Debug(msg, b.join(fields)...) }
func (b *bound) Info(msg string, fields ...ports.Field)  { b.next.Info(msg, b.join(fields)...) }
func (b *bound) Warn(msg string, fields ...ports.Field)  { b.next.Warn(msg, b.join(fields)...) }
func (b *bound) Error(msg string, fields ...ports.Field) { b.next.Error(msg, b.join(fields)...) }
