package cfg

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

// SetupLogger installs the default slog logger: human-readable text on a
// terminal, JSON otherwise.
func SetupLogger(debug bool) {
	slog.SetDefault(NewLogger(os.Stderr, debug, isTerminal(os.Stderr)))
}

func NewLogger(w io.Writer, debug bool, text bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if text {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
