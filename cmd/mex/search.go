package main

import (
	"context"
	"os"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/mex/internal/config"
	"github.com/g5becks/mex/internal/manifest"
	"github.com/g5becks/mex/internal/search"
	"github.com/g5becks/mex/internal/ui"
)

const defaultSearchLimit = 20

func newSearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Fuzzy search built pages by path, title and heading",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Search only within one source"},
			&cli.IntFlag{Name: "limit", Usage: "Max results (0 = unlimited)", Value: defaultSearchLimit},
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: searchAction,
	}
}

func searchAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return oops.
			Code("INVALID_ARGS").
			Hint("Usage: mex search <query>").
			Errorf("expected 1 argument, got %d", cmd.Args().Len())
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	m, err := manifest.Load(cfg.Output)
	if err != nil {
		return err
	}

	results, err := search.Run(m, search.Options{
		Query:  cmd.Args().First(),
		Source: cmd.String("source"),
		Limit:  cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	return ui.RenderSearchResults(os.Stdout, results, cmd.Bool("json"))
}
