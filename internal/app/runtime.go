package app

import (
	"log/slog"
	"os"

	"plaza-social/go-client/internal/platform/privacylog"
)

// DefaultLogger is the process-wide structured logger: JSON on stdout, with
// credential attributes redacted before they reach the handler.
func DefaultLogger() *slog.Logger {
	return slog.New(privacylog.WrapHandler(slog.NewJSONHandler(os.Stdout, nil)))
}
