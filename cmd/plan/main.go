// Package main provides a command that runs the planning pipeline once
// for a request file and writes the ranked plans as JSON
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alchemorsel/vitaplan/internal/infrastructure/config"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/container"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"go.uber.org/fx"
)

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to the configuration file")
	flag.StringVar(&opts.input, "input", "", "request file in YAML or JSON (required)")
	flag.StringVar(&opts.output, "out", "-", "where to write the JSON result, - for stdout")
	flag.StringVar(&opts.kind, "kind", "all", "plan kind to generate: diet, exercise or all")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "plan:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.input == "" {
		return fmt.Errorf("-input is required")
	}
	req, err := loadRequest(opts.input)
	if err != nil {
		return err
	}

	var planner inbound.PlanningService
	app := fx.New(
		fx.NopLogger,
		fx.Supply(container.ConfigPath(opts.configPath)),
		container.CoreModule,
		// Keep stdout for the result
		fx.Decorate(func(cfg *config.Config) *config.Config {
			cfg.App.LogOutputs = []string{"stderr"}
			return cfg
		}),
		fx.Populate(&planner),
	)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	out := os.Stdout
	if opts.output != "-" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return execute(ctx, planner, req, opts.kind, out, os.Stderr)
}
