package logging

import (
	"io"
	"log/slog"
	"strings"
)

const (
	FormatCLI  = "cli"
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to w in the given format: the coloured CLI
// format, logfmt text or JSON. Unknown formats use the CLI format.
func New(w io.Writer, format, level string) *slog.Logger {
	lev := ParseLogLevel(level)
	opts := &slog.HandlerOptions{Level: lev}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts))
	case FormatText:
		return slog.New(slog.NewTextHandler(w, opts))
	default:
		return slog.New(NewCLIHandler(w, lev))
	}
}
