package logger

import (
	"context"
	"encoding/json"
	"io"
	stdlog "log"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/exp/slog"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type Option func(*options)

type options struct {
	level *slog.Level
	out   io.Writer
}

// WithLevel переопределяет уровень окружения ("debug", "info", "warn", "error").
// Пустая или неизвестная строка игнорируется.
func WithLevel(level string) Option {
	return func(o *options) {
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err == nil {
			o.level = &l
		}
	}
}

func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// New собирает логгер для окружения: local - цветной вывод,
// dev - JSON с DEBUG, prod - JSON с INFO.
func New(env string, opts ...Option) *slog.Logger {
	o := &options{out: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	level := slog.LevelInfo
	if env == envLocal || env == envDev || env == "" {
		level = slog.LevelDebug
	}
	if o.level != nil {
		level = *o.level
	}

	switch env {
	case envProd, envDev:
		return slog.New(slog.NewJSONHandler(o.out, &slog.HandlerOptions{Level: level}))
	default:
		return newPretty(o.out, level)
	}
}

func setupPrettySlog() *slog.Logger {
	return newPretty(os.Stdout, slog.LevelDebug)
}

func newPretty(out io.Writer, level slog.Level) *slog.Logger {
	return slog.New(&PrettyHandler{
		Handler: slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}),
		l:       stdlog.New(out, "", 0),
	})
}

// PrettyHandler печатает записи в одну строку: время, уровень, сообщение
// и атрибуты отдельным JSON.
type PrettyHandler struct {
	slog.Handler
	l     *stdlog.Logger
	attrs []slog.Attr
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	fields := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		v := a.Value.Any()
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fields[a.Key] = v
		return true
	})

	var b []byte
	if len(fields) > 0 {
		var err error
		b, err = json.MarshalIndent(fields, "", "  ")
		if err != nil {
			return err
		}
	}

	timeStr := r.Time.Format("[15:04:05.000]")
	msg := color.CyanString(r.Message)

	h.l.Println(timeStr, level, msg, color.WhiteString(string(b)))
	return nil
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &PrettyHandler{
		Handler: h.Handler.WithAttrs(attrs),
		l:       h.l,
		attrs:   merged,
	}
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{
		Handler: h.Handler.WithGroup(name),
		l:       h.l,
		attrs:   h.attrs,
	}
}
