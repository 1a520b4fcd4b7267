package main

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a structured JSON slog.Logger writing to stderr.
func NewLogger(level slog.Leveler) *slog.Logger {
	return newLogger(os.Stderr, level)
}

func newLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("app", "planetrack")
}
