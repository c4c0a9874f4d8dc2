package storeengine

import (
	"log/slog"
	"os"
)

var logLevel = new(slog.LevelVar)

// ConfigureLogging sets up the global default logger with a TextHandler, reading the level
// from the STOREENGINE_LOG_LEVEL environment variable (DEBUG, WARN, ERROR; default INFO).
// Applications embedding the engine should call this once at startup if they want the engine's
// default logging configuration rather than wiring their own slog handler.
func ConfigureLogging() {
	logLevel.Set(slog.LevelInfo)

	switch os.Getenv("STOREENGINE_LOG_LEVEL") {
	case "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "WARN":
		logLevel.Set(slog.LevelWarn)
	case "ERROR":
		logLevel.Set(slog.LevelError)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLogLevel overrides the level set by ConfigureLogging at runtime.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}
