package logging

import (
	"context"
	"errors"
)

// TeeLogger fans every entry out to several loggers
type TeeLogger struct {
	loggers []Logger
}

// Tee combines loggers; nil entries are dropped.
// With zero loggers it returns a NullLogger, with one it returns that logger.
func Tee(loggers ...Logger) Logger {
	var kept []Logger
	for _, l := range loggers {
		if l != nil {
			kept = append(kept, l)
		}
	}
	switch len(kept) {
	case 0:
		return NewNullLogger()
	case 1:
		return kept[0]
	}
	return &TeeLogger{loggers: kept}
}

func (t *TeeLogger) Debug(ctx context.Context, msg string, fields Fields) {
	for _, l := range t.loggers {
		l.Debug(ctx, msg, fields)
	}
}

func (t *TeeLogger) Info(ctx context.Context, msg string, fields Fields) {
	for _, l := range t.loggers {
		l.Info(ctx, msg, fields)
	}
}

func (t *TeeLogger) Warn(ctx context.Context, msg string, fields Fields) {
	for _, l := range t.loggers {
		l.Warn(ctx, msg, fields)
	}
}

func (t *TeeLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	for _, l := range t.loggers {
		l.Error(ctx, msg, err, fields)
	}
}

func (t *TeeLogger) WithFields(fields Fields) Logger {
	derived := make([]Logger, len(t.loggers))
	for i, l := range t.loggers {
		derived[i] = l.WithFields(fields)
	}
	return &TeeLogger{loggers: derived}
}

// Close closes every logger and joins their errors
func (t *TeeLogger) Close() error {
	var errs []error
	for _, l := range t.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
