package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/exp/slog"
)

const (
	timeFormat     = "01-02|15:04:05.000"
	termMsgJust    = 40
	termCtxMaxPadd = 40
)

type discardHandler struct{}

// DiscardHandler returns a no-op handler
func DiscardHandler() slog.Handler {
	return &discardHandler{}
}

func (h *discardHandler) Handle(_ context.Context, r slog.Record) error {
	return nil
}

func (h *discardHandler) Enabled(_ context.Context, level slog.Level) bool {
	return false
}

func (h *discardHandler) WithGroup(name string) slog.Handler {
	panic("not implemented")
}

func (h *discardHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &discardHandler{}
}

// TerminalHandler renders records as
//
//	INFO [10-17|14:02:11.004] Optimized method     method=LFoo;.bar:()V dead=3
//
// with levels colorized when useColor is set.
type TerminalHandler struct {
	mu       *sync.Mutex
	wr       io.Writer
	lvl      slog.Leveler
	useColor bool
	attrs    []slog.Attr

	// fieldPadding is a map with maximum field value lengths seen until now
	// to allow padding log contexts in a bit smarter way.
	fieldPadding map[string]int
}

// NewTerminalHandler returns a handler which formats log records at all
// levels optimized for human readability on a terminal.
func NewTerminalHandler(wr io.Writer, useColor bool) *TerminalHandler {
	return NewTerminalHandlerWithLevel(wr, levelMaxVerbosity, useColor)
}

// NewTerminalHandlerWithLevel returns the same handler as NewTerminalHandler
// but only outputs records which are at or above the specified level.
func NewTerminalHandlerWithLevel(wr io.Writer, lvl slog.Leveler, useColor bool) *TerminalHandler {
	return &TerminalHandler{
		mu:           new(sync.Mutex),
		wr:           wr,
		lvl:          lvl,
		useColor:     useColor,
		fieldPadding: make(map[string]int),
	}
}

const levelMaxVerbosity = slog.Level(-1 << 31)

func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf := h.format(r)
	_, err := h.wr.Write(buf)
	return err
}

func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.lvl.Level()
}

func (h *TerminalHandler) WithGroup(name string) slog.Handler {
	panic("not implemented")
}

func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TerminalHandler{
		mu:           h.mu,
		wr:           h.wr,
		lvl:          h.lvl,
		useColor:     h.useColor,
		attrs:        append(append([]slog.Attr(nil), h.attrs...), attrs...),
		fieldPadding: make(map[string]int),
	}
}

// ResetFieldPadding zeroes the field-padding for all attribute pairs.
func (h *TerminalHandler) ResetFieldPadding() {
	h.mu.Lock()
	h.fieldPadding = make(map[string]int)
	h.mu.Unlock()
}

var levelColors = map[slog.Level]*color.Color{
	LevelTrace:      color.New(color.FgBlue),
	slog.LevelDebug: color.New(color.FgCyan),
	slog.LevelInfo:  color.New(color.FgGreen),
	slog.LevelWarn:  color.New(color.FgYellow),
	slog.LevelError: color.New(color.FgRed),
	LevelCrit:       color.New(color.FgMagenta),
}

func init() {
	// coloring is decided per handler by useColor
	for _, c := range levelColors {
		c.EnableColor()
	}
}

func (h *TerminalHandler) format(r slog.Record) []byte {
	var (
		b   bytes.Buffer
		lvl = LevelAlignedString(r.Level)
	)
	if h.useColor {
		if c, ok := levelColors[r.Level]; ok {
			lvl = c.Sprint(lvl)
		}
	}
	b.WriteString(lvl)
	b.WriteString(" [")
	b.WriteString(r.Time.Format(timeFormat))
	b.WriteString("] ")
	b.WriteString(r.Message)

	// try to justify the log output for short messages
	length := len(r.Message)
	if (r.NumAttrs()+len(h.attrs)) > 0 && length < termMsgJust {
		b.Write(bytes.Repeat([]byte{' '}, termMsgJust-length))
	}
	h.formatAttributes(&b, r)
	b.WriteByte('\n')
	return b.Bytes()
}

func (h *TerminalHandler) formatAttributes(b *bytes.Buffer, r slog.Record) {
	writeAttr := func(attr slog.Attr, last bool) {
		b.WriteByte(' ')
		key := attr.Key
		if h.useColor && attr.Key == errorKey {
			key = color.RedString(key)
		}
		b.WriteString(key)
		b.WriteByte('=')
		val := formatValue(attr.Value)
		b.WriteString(val)

		if last {
			return
		}
		// Update max padding, if required
		if padding := h.fieldPadding[attr.Key]; len(val) > padding && len(val) < termCtxMaxPadd {
			h.fieldPadding[attr.Key] = len(val)
		}
		if padding := h.fieldPadding[attr.Key]; len(val) < padding {
			b.Write(bytes.Repeat([]byte{' '}, padding-len(val)))
		}
	}
	n := len(h.attrs) + r.NumAttrs()
	i := 0
	for _, attr := range h.attrs {
		i++
		writeAttr(attr, i == n)
	}
	r.Attrs(func(attr slog.Attr) bool {
		i++
		writeAttr(attr, i == n)
		return true
	})
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return escapeString(v.String())
	case slog.KindTime:
		return v.Time().Format(timeFormat)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		switch x := v.Any().(type) {
		case nil:
			return "<nil>"
		case error:
			return escapeString(x.Error())
		case fmt.Stringer:
			return escapeString(x.String())
		}
	}
	return escapeString(v.String())
}

func escapeString(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " =\"\t\r\n") || !strconv.CanBackquote(s) {
		return strconv.Quote(s)
	}
	return s
}

// JSONHandler returns a handler which prints records in JSON format.
func JSONHandler(wr io.Writer) slog.Handler {
	return JSONHandlerWithLevel(wr, levelMaxVerbosity)
}

// JSONHandlerWithLevel returns a handler which prints records in JSON format
// that are less than or equal to the specified verbosity level.
func JSONHandlerWithLevel(wr io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(wr, &slog.HandlerOptions{
		ReplaceAttr: builtinReplaceJSON,
		Level:       level,
	})
}

func builtinReplaceJSON(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() == slog.KindTime {
			return slog.Attr{Key: "t", Value: slog.StringValue(attr.Value.Time().Format(time.RFC3339Nano))}
		}
	case slog.LevelKey:
		if l, ok := attr.Value.Any().(slog.Level); ok {
			return slog.Any("lvl", LevelString(l))
		}
	}
	return attr
}
