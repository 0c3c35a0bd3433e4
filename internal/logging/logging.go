// Package logging builds the process logger and carries it in contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	slogctx "github.com/veqryn/slog-context"
	"gitlab.com/tozd/go/errors"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = slog.LevelWarn

// ErrUnknownLevel is returned by ParseLevel for names it does not know.
var ErrUnknownLevel = errors.Base("unknown log level")

// ParseLevel maps debug, info, warn and error to slog levels. The empty
// string yields DefaultLevel.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return DefaultLevel, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.WithDetails(ErrUnknownLevel, "level", name)
}

// New returns a tint logger writing to w, wrapped so attributes added with
// slogctx.With flow into every record.
func New(w io.Writer, level slog.Level, color bool) *slog.Logger {
	h := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !color,
	})
	return slog.New(slogctx.NewHandler(h, nil))
}

// Setup builds a logger and returns ctx carrying it.
func Setup(ctx context.Context, w io.Writer, level slog.Level, color bool) context.Context {
	return slogctx.NewCtx(ctx, New(w, level, color))
}

// IsTerminal reports whether w is a character device.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
