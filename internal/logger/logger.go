// Package logger builds the zerolog.Logger handed to every component.
package logger

import (
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	// Level is a zerolog level name. Unknown or empty values select info.
	Level string

	// JSON writes one JSON object per line instead of console output.
	JSON bool

	// Caller adds file:line to every event.
	Caller bool
}

// ParseLevel returns the zerolog level for name and whether name was valid.
func ParseLevel(name string) (zerolog.Level, bool) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, false
	}
	return level, true
}

// Verbose reports whether name selects debug or trace output, where file:line
// is worth its noise.
func Verbose(name string) bool {
	level, ok := ParseLevel(name)
	return ok && level <= zerolog.DebugLevel
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) zerolog.Logger {
	level, ok := ParseLevel(opts.Level)

	out := w
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if opts.Caller {
		ctx = ctx.Caller()
	}
	log := ctx.Logger()

	if !ok && opts.Level != "" {
		log.Warn().Str("log_level", opts.Level).Msg("invalid log level, defaulting to info")
	}
	return log
}

func init() {
	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}
}
