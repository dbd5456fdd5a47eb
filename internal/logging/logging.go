// Package logging writes the service's JSON-lines log through log/slog.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
)

// Logger writes one JSON object per line with "ts", "level" and "msg" keys followed by the
// caller's fields. It is safe for concurrent use.
type Logger struct {
	slog *slog.Logger
	loc  *time.Location
}

// New returns a Logger writing to w. A nil location defaults to UTC.
func New(w io.Writer, loc *time.Location) *Logger {
	if loc == nil {
		loc = time.UTC
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch {
			case a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime:
				return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
			case a.Key == slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					return slog.String(slog.LevelKey, strings.ToLower(lvl.String()))
				}
			}
			return a
		},
	})
	return &Logger{slog: slog.New(h), loc: loc}
}

// Default returns a Logger writing to stdout.
func Default(loc *time.Location) *Logger {
	return New(os.Stdout, loc)
}

// Location returns the time location used for the "ts" field.
func (l *Logger) Location() *time.Location { return l.loc }

func (l *Logger) Info(msg string, fields map[string]any) { l.log(slog.LevelInfo, msg, fields) }

func (l *Logger) Warn(msg string, fields map[string]any) { l.log(slog.LevelWarn, msg, fields) }

// Error logs msg at error level; err, when non-nil, is added under "error".
func (l *Logger) Error(msg string, err error, fields map[string]any) {
	if err == nil {
		l.log(slog.LevelError, msg, fields)
		return
	}
	entry := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		entry[k] = v
	}
	entry["error"] = err.Error()
	l.log(slog.LevelError, msg, entry)
}

// ts, level and msg belong to the record; fields using those keys are dropped.
func (l *Logger) log(level slog.Level, msg string, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		switch k {
		case "ts", slog.TimeKey, slog.LevelKey, slog.MessageKey:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	l.slog.LogAttrs(context.Background(), level, msg, attrs...)
}
