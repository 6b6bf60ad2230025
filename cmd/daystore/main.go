package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"

	"daystore/internal/slogx"
)

func main() {
	slog.SetDefault(slogx.NewDefault("info"))

	a, cleanup, err := InitializeApp()
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slogx.NewDefault(a.Config.LogLevel))

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&listCmd{app: a}, "")
	commander.Register(&importCmd{app: a}, "")
	commander.Register(&exportCmd{app: a}, "")
	commander.Register(&indexCmd{app: a}, "")

	flag.Parse()

	// Ctrl-C cancels between per-item fetches; committed merges stay.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := commander.Execute(ctx)
	cleanup()
	os.Exit(int(code))
}
