package logging

import "context"

// NullLogger drops every entry. The zero value is ready to use.
type NullLogger struct{}

var discard = &NullLogger{}

// NewNullLogger returns the shared NullLogger
func NewNullLogger() *NullLogger { return discard }

func (*NullLogger) Debug(context.Context, string, Fields)        {}
func (*NullLogger) Info(context.Context, string, Fields)         {}
func (*NullLogger) Warn(context.Context, string, Fields)         {}
func (*NullLogger) Error(context.Context, string, error, Fields) {}

func (n *NullLogger) WithFields(Fields) Logger { return n }

func (*NullLogger) Close() error { return nil }
