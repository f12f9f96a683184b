package logger

import (
	"log/slog"
	"os"
)

// New returns the application logger. Development gets human-readable text,
// everything else JSON for log aggregation.
func New(environment string) *slog.Logger {
	if environment == "development" {
		return slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
