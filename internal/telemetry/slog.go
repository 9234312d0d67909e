package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// parseLevel maps the configured logging.level string to a slog.Level,
// defaulting to Info for anything unrecognized.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetupLogger installs the process-wide slog default from the hub's logging
// config: format "json" selects the JSON handler (production), anything else
// the text handler (local development). Source locations are attached only at
// debug level. Installing the default means the request logger, repositories,
// and background jobs all log through it without threading a *slog.Logger
// around.
func SetupLogger(format, level string) {
	lvl := parseLevel(level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}
