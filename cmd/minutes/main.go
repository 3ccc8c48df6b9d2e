package main

import (
	"fmt"
	"os"

	"github.com/johnquangdev/minutemaestro/internal/cli"
	"github.com/johnquangdev/minutemaestro/internal/output"
	"github.com/johnquangdev/minutemaestro/pkg/config"
	"github.com/johnquangdev/minutemaestro/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// logs go to stderr so the transcript on stdout stays readable
	level := cfg.Log.Level
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	zlog, err := logger.New(cfg.Server.Environment, level)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer zlog.Sync()

	deps := &cli.Dependencies{
		Config: cfg,
		Logger: zlog,
	}

	return cli.NewRootCmd(deps).Execute()
}
