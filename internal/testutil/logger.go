package testutil

import (
	"io"
	"log/slog"
)

// Logger returns a logger that discards everything. Tests asserting on
// log output should use log.NewWithWriter instead.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
