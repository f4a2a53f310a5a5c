package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Options tunes logger initialisation. Zero values fall back to the
// LOG_LEVEL and LOG_FORMAT environment variables.
type Options struct {
	Level  string
	Format string
	Out    io.Writer
}

// InitFromEnv configures zerolog using env vars.
// - LOG_LEVEL  : trace|debug|info|warn|error (default: warn)
// - LOG_FORMAT : json|console                (default: console on a terminal, json otherwise)
func InitFromEnv() {
	Init(Options{})
}

// Init configures the global zerolog logger. Logs always go to stderr unless
// opts.Out says otherwise, so stdout stays reserved for progress lines.
func Init(opts Options) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	level := strings.ToLower(firstNonEmpty(opts.Level, getenv("LOG_LEVEL", "warn")))
	format := strings.ToLower(firstNonEmpty(opts.Format, getenv("LOG_FORMAT", defaultFormat(out))))

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	zerolog.SetGlobalLevel(ParseLevel(level))

	var logger zerolog.Logger
	if format == "console" {
		cw := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = out
			w.TimeFormat = time.RFC3339
		})
		logger = zerolog.New(cw).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(out).With().Timestamp().Logger()
	}
	log.Logger = logger
	// Loggers fetched with zerolog.Ctx fall back to the global one.
	zerolog.DefaultContextLogger = &log.Logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to warn.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

// Quiet raises the global level so only errors are emitted.
func Quiet() {
	if zerolog.GlobalLevel() < zerolog.ErrorLevel {
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
}

func defaultFormat(out io.Writer) string {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "console"
	}
	return "json"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// getenv returns the env var value if set and non-empty, otherwise def.
func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
