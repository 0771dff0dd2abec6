package main

import (
	"context"
	"errors"
	"os"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/g5becks/mex/internal/config"
	"github.com/g5becks/mex/internal/lockfile"
	"github.com/g5becks/mex/internal/manifest"
	"github.com/g5becks/mex/internal/ui"
)

func newListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List configured sources and build status",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON output"},
			&cli.BoolFlag{Name: "long", Aliases: []string{"l"}, Usage: "Show expanded source fields"},
			configFlag(),
		},
		Action: listAction,
	}
}

func listAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	statuses, err := sourceStatuses(cfg)
	if err != nil {
		return err
	}

	return ui.RenderSourceList(os.Stdout, statuses, ui.ListOptions{
		JSON:    cmd.Bool("json"),
		Verbose: cmd.Bool("long"),
	})
}

func sourceStatuses(cfg *config.Config) ([]ui.SourceStatus, error) {
	lock, err := lockfile.Load(cfg.Output)
	if err != nil {
		return nil, err
	}

	site, err := loadManifestIfPresent(cfg.Output)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	slices.Sort(names)

	statuses := make([]ui.SourceStatus, 0, len(names))
	for _, name := range names {
		sourceCfg := cfg.Sources[name]
		status := ui.SourceStatus{
			Name:      name,
			Type:      sourceCfg.Type,
			Path:      sourceCfg.Path,
			URL:       sourceCfg.URL,
			Patterns:  sourceCfg.Patterns,
			OutputDir: cfg.OutputDir(name, sourceCfg),
			Status:    ui.StatusPending,
		}

		if entry := lock.GetEntry(name); entry != nil {
			status.Status = ui.StatusBuilt
			status.BuiltAt = entry.BuiltAt
		}

		if coll, ok := site.Collections[name]; ok {
			status.Documents = coll.FileCount
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}

// loadManifestIfPresent returns an empty manifest before the first build.
func loadManifestIfPresent(outputDir string) (*manifest.Manifest, error) {
	if _, err := os.Stat(manifest.Path(outputDir)); errors.Is(err, os.ErrNotExist) {
		return manifest.New(), nil
	}

	return manifest.Load(outputDir)
}
