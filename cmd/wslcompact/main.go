package main

import (
	"log/slog"
	"os"

	"github.com/wsltools/wslcompact/cmd/wslcompact/commands"
)

func main() {
	// Structured logger with text format for readability; the workflow's
	// user-facing event stream goes through its own sinks.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	commands.Execute()
}
