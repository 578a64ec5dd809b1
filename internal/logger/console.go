package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorGray    = "\033[37m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
)

type levelStyle struct {
	label string
	color string
}

var levelStyles = map[slog.Level]levelStyle{
	slog.LevelDebug: {"DBG", colorMagenta},
	slog.LevelInfo:  {"INF", colorGreen},
	slog.LevelWarn:  {"WRN", colorYellow},
	slog.LevelError: {"ERR", colorRed},
}

// PrettyHandler writes one colored line per record:
//
//	15:04:05 INF [file.go:12] message key=value group.key=value
//
// Handlers derived through WithAttrs and WithGroup share the writer lock, so
// lines from concurrent goroutines never interleave.
type PrettyHandler struct {
	opts   slog.HandlerOptions
	out    io.Writer
	mu     *sync.Mutex
	prefix string
	attrs  []slog.Attr
}

// NewPrettyHandler creates a console handler. A nil opts logs at info.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{out: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Enabled reports whether level passes the configured minimum.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	floor := slog.LevelInfo
	if h.opts.Level != nil {
		floor = h.opts.Level.Level()
	}
	return level >= floor
}

// Handle renders r and writes it.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b bytes.Buffer

	b.WriteString(colorDim + r.Time.Format(time.TimeOnly) + colorReset + " ")

	label, color := formatLevel(r.Level)
	b.WriteString(color + label + colorReset + " ")

	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		b.WriteString(colorDim + filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line) + colorReset + " ")
	}

	b.WriteString(colorBold + r.Message + colorReset)

	first := true
	writeAttr := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		if first {
			b.WriteString(" " + colorCyan)
			first = false
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(a.Key + "=" + formatValue(a.Value))
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(h.qualify(a))
		return true
	})
	if !first {
		b.WriteString(colorReset)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(b.Bytes())
	return err
}

// WithAttrs returns a handler that prints attrs on every line, qualified by
// the groups open at this point.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return &next
}

// WithGroup returns a handler that prefixes later keys with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *PrettyHandler) qualify(a slog.Attr) slog.Attr {
	if h.prefix == "" {
		return a
	}
	return slog.Attr{Key: h.prefix + a.Key, Value: a.Value}
}

func formatLevel(level slog.Level) (label, color string) {
	if s, ok := levelStyles[level]; ok {
		return s.label, s.color
	}
	return level.String(), colorGray
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return strconv.Quote(err.Error())
		}
	}
	return v.String()
}
