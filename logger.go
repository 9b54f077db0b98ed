package claudesdk

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger that discards everything written to it, for
// callers that want the SDK's logging hooks wired up but silent.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
