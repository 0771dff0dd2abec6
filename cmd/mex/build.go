package main

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/mex/internal/build"
	"github.com/g5becks/mex/internal/config"
	"github.com/g5becks/mex/internal/ui"
	"github.com/g5becks/mex/internal/watch"
)

const defaultParallel = 3

func newBuildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Render configured sources to HTML",
		ArgsUsage: "[source-name...]",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Rebuild every page and skip freshness checks"},
			&cli.BoolFlag{Name: "clean", Usage: "Delete output directory before building"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Show planned changes without writing files"},
			&cli.IntFlag{Name: "parallel", Aliases: []string{"p"}, Usage: "Maximum parallel source builds", Value: defaultParallel},
			&cli.BoolFlag{Name: "progress", Usage: "Show a progress bar per source"},
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Rebuild when documents or the config change"},
		},
		Action: buildAction,
	}
}

func buildAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	runErr := runBuild(ctx, cmd, cfg)
	if !cmd.Bool("watch") {
		return runErr
	}
	if runErr != nil {
		ui.NewBuildPrinter(false).PrintError(runErr)
	}

	return watchBuild(ctx, cmd, cfg)
}

func runBuild(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
	dryRun := cmd.Bool("dry-run")
	printer := ui.NewBuildPrinter(dryRun)

	opts := build.Options{
		SourceNames: cmd.Args().Slice(),
		Force:       cmd.Bool("force"),
		DryRun:      dryRun,
		Clean:       cmd.Bool("clean"),
		MaxParallel: cmd.Int("parallel"),
		Logger:      slog.Default(),
	}

	var writer progress.Writer
	if cmd.Bool("progress") {
		writer = ui.NewProgressWriter()
		opts.Progress = writer
		go writer.Render()
	} else {
		opts.OnEvent = printer.HandleEvent
	}

	result, runErr := build.Run(ctx, cfg, opts)

	if writer != nil {
		writer.Stop()
		for writer.IsRenderInProgress() {
			time.Sleep(10 * time.Millisecond)
		}
	}

	printer.PrintSummary(result)
	return runErr
}

// watchBuild rebuilds until interrupted. The config is reloaded on every
// change so edits to mex.toml take effect; a config that fails to load
// keeps the previous one.
func watchBuild(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := watch.New(watchOptions(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	printer := ui.NewBuildPrinter(false)
	printer.PrintWatching(nil)

	return watcher.Run(ctx, func(ctx context.Context, paths []string) {
		slog.Debug("rebuilding", "changed", paths)
		printer.PrintWatching(paths)

		if reloaded, loadErr := config.Load(cfg.ConfigFile); loadErr != nil {
			printer.PrintError(loadErr)
		} else {
			cfg = reloaded
		}

		if buildErr := runBuild(ctx, cmd, cfg); buildErr != nil {
			printer.PrintError(buildErr)
		}
	})
}

func watchOptions(cfg *config.Config) watch.Options {
	opts := watch.Options{
		Files:  []string{cfg.ConfigFile, config.LocalPath(cfg.ConfigFile)},
		Ignore: []string{cfg.Output},
		Logger: slog.Default(),
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.Sources)) {
		sourceCfg := cfg.Sources[name]
		if sourceCfg.Type != config.SourceTypeDir {
			continue
		}

		dir := cfg.SourceDir(sourceCfg)
		if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
			slog.Warn("not watching missing source directory", "source", name, "path", dir)
			continue
		}
		opts.Dirs = append(opts.Dirs, dir)
	}

	return opts
}
