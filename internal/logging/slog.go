package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}

// Output formats accepted by Options.Format.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Options controls how New builds the underlying slog handler.
//
// Format "auto" picks the text handler when stderr is a terminal and JSON
// otherwise. A non-empty File sends output to a size-rotated log file
// instead of stderr.
type Options struct {
	Format     string
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// isTerminal is a seam for tests.
var isTerminal = func(fd int) bool { return term.IsTerminal(fd) }

// New builds a SlogLogger according to opts.
func New(opts Options) *SlogLogger {
	var w io.Writer = os.Stderr
	tty := isTerminal(int(os.Stderr.Fd()))

	if opts.File != "" {
		w = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			Compress:   true,
		}
		tty = false
	}

	return NewSlogLogger(slog.New(newHandler(w, opts.Format, tty, parseLevel(opts.Level))))
}

func newHandler(w io.Writer, format string, tty bool, level slog.Level) slog.Handler {
	ho := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case FormatText:
		return slog.NewTextHandler(w, ho)
	case FormatJSON:
		return slog.NewJSONHandler(w, ho)
	default:
		if tty {
			return slog.NewTextHandler(w, ho)
		}
		return slog.NewJSONHandler(w, ho)
	}
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
