// Package logsink renders slog records as single-line text:
//
//	2026-01-02T15:04:05.000 - LogWise - ERROR - division by zero - app.py:10
//
// The trailing file:line comes from the FileKey and LineKey attributes and
// defaults to "unknown:0". Any other attributes follow as " key=value".
// Consumers should treat the output as line-oriented text, not JSON.
package logsink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Attribute keys carrying the reported source location.
const (
	FileKey = "file"
	LineKey = "line"
)

// UnknownFile is rendered when a record carries no FileKey attribute.
const UnknownFile = "unknown"

// TimeFormat is the timestamp layout at the start of every line.
const TimeFormat = "2006-01-02T15:04:05.000"

// Options configures a Handler.
type Options struct {
	// Name is the logger name rendered after the timestamp.
	Name string
	// Level is the minimum level emitted. Nil means INFO.
	Level slog.Leveler
}

// Handler is a slog.Handler writing the line template to an io.Writer.
// It is safe for concurrent use; handlers derived via WithAttrs/WithGroup
// share the writer and its lock.
type Handler struct {
	w     io.Writer
	mu    *sync.Mutex
	name  string
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewHandler creates a Handler that writes to w.
func NewHandler(w io.Writer, opts *Options) *Handler {
	h := &Handler{
		w:     w,
		mu:    &sync.Mutex{},
		level: slog.LevelInfo,
	}
	if opts != nil {
		h.name = opts.Name
		if opts.Level != nil {
			h.level = opts.Level
		}
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	file := UnknownFile
	line := int64(0)
	var extra []slog.Attr

	collect := func(a slog.Attr, grouped bool) {
		a.Value = a.Value.Resolve()
		switch a.Key {
		case FileKey:
			if s := a.Value.String(); s != "" {
				file = s
			}
		case LineKey:
			line = attrInt(a.Value)
		default:
			if grouped && h.group != "" {
				a.Key = h.group + "." + a.Key
			}
			extra = append(extra, a)
		}
	}
	for _, a := range h.attrs {
		collect(a, false)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a, true)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var sb strings.Builder
	sb.WriteString(ts.Format(TimeFormat))
	sb.WriteString(" - ")
	sb.WriteString(h.name)
	sb.WriteString(" - ")
	sb.WriteString(LevelLabel(r.Level))
	sb.WriteString(" - ")
	sb.WriteString(r.Message)
	sb.WriteString(" - ")
	sb.WriteString(file)
	sb.WriteByte(':')
	sb.WriteString(strconv.FormatInt(line, 10))
	for _, a := range extra {
		fmt.Fprintf(&sb, " %s=%s", a.Key, formatValue(a.Value))
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" && a.Key != FileKey && a.Key != LineKey {
			a.Key = h.group + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func attrInt(v slog.Value) int64 {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return int64(v.Uint64())
	case slog.KindFloat64:
		return int64(v.Float64())
	default:
		n, err := strconv.ParseInt(v.String(), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
}

// formatValue quotes strings containing spaces so key=value pairs stay splittable.
func formatValue(v slog.Value) string {
	s := v.String()
	if v.Kind() == slog.KindString && (s == "" || strings.ContainsAny(s, " \t\n\"=")) {
		return strconv.Quote(s)
	}
	return s
}
