package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"logopal/inspect"
	"logopal/parallel"
	"logopal/quantize"
	"logopal/server"
)

type CLI struct {
	LogLevel string `help:"Log level" enum:"debug,info,warn,error" default:"info" env:"LOGOPAL_LOG_LEVEL"`
	Workers  int    `help:"Number of parallel workers, 0 for one per CPU" default:"0" env:"LOGOPAL_WORKERS"`

	Quantize quantize.CLICmd `cmd:"" help:"Reduce every image of a folder to a few dominant colours"`
	Palette  inspect.CLICmd  `cmd:"" help:"Print and export the palette extracted from one image"`
	Serve    server.CLICmd   `cmd:"" help:"Serve interactive recolouring sessions over websockets"`
}

// loadEnv reads LOGOPAL_ENV_FILE (default .env) so that kong env tags see
// its values. Variables already set take precedence.
func loadEnv() {
	name := os.Getenv("LOGOPAL_ENV_FILE")
	if name == "" {
		name = ".env"
	}
	if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("could not load environment file", "file", name, "error", err)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func main() {
	loadEnv()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("logopal"),
		kong.Description("Reduce logos to a small editable colour palette for multi-colour printing."),
		kong.UsageOnError(),
	)
	setupLogging(cli.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.FatalIfErrorf(kctx.BindToProvider(func() (*parallel.Pool, error) {
		return parallel.Start(cli.Workers), nil
	}))

	slog.Debug("running", "command", kctx.Command())
	err := kctx.Run()
	stop()
	kctx.FatalIfErrorf(err)
}
