package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/forge/internal/ui/output"
	"go.trai.ch/forge/internal/ui/style"
)

// leadingKeys are printed first, in this order, ahead of any other attribute.
var leadingKeys = []string{"package", "path", "url"}

type levelStyle struct {
	glyph string
	color lipgloss.Color
}

var levelStyles = map[slog.Level]levelStyle{
	slog.LevelWarn:  {glyph: style.Warning, color: style.Yellow},
	slog.LevelError: {glyph: style.Cross, color: style.Red},
}

// PrettyHandler is a slog.Handler producing colored, line-oriented output.
// Warnings and errors carry a glyph; attributes follow the message with
// package, path and url first.
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewPrettyHandler creates a new PrettyHandler writing to the provided writer.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}

	return &PrettyHandler{out: output.New(w), level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes one record. Each line of a multi-line message is colored on
// its own so that a reset never spans a newline.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	ls, ok := levelStyles[r.Level]
	if !ok {
		ls = levelStyle{color: style.Slate}
	}
	msg := r.Message
	if ls.glyph != "" {
		msg = ls.glyph + " " + msg
	}

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)
		return true
	})

	color := termenv.RGBColor(string(ls.color))
	var b strings.Builder
	for line := range strings.SplitSeq(msg, "\n") {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(h.out.String(line).Foreground(color).String())
	}
	if tail := h.formatAttrs(attrs); tail != "" {
		b.WriteString(" " + h.out.String(tail).Faint().String())
	}
	b.WriteByte('\n')

	_, err := h.out.WriteString(b.String())
	return err
}

func (h *PrettyHandler) formatAttrs(attrs []slog.Attr) string {
	if len(attrs) == 0 {
		return ""
	}
	rank := func(key string) int {
		if i := slices.Index(leadingKeys, key); i >= 0 {
			return i
		}
		return len(leadingKeys)
	}
	slices.SortStableFunc(attrs, func(a, b slog.Attr) int {
		return rank(a.Key) - rank(b.Key)
	})

	parts := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		key := attr.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		value := attr.Value.String()
		if strings.ContainsAny(value, " \t") {
			value = `"` + value + `"`
		}
		parts = append(parts, key+"="+value)
	}
	return strings.Join(parts, " ")
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PrettyHandler{out: h.out, level: h.level, attrs: slices.Concat(h.attrs, attrs), group: h.group}
}

// WithGroup returns a new Handler with the given group name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{out: h.out, level: h.level, attrs: h.attrs, group: name}
}
