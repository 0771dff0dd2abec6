package main

import (
	"context"
	"os"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/mex/internal/outline"
	"github.com/g5becks/mex/internal/ui"
)

func newOutlineCommand() *cli.Command {
	return &cli.Command{
		Name:      "outline",
		Usage:     "Show the heading outline of a markdown file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: outlineAction,
	}
}

func outlineAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return oops.
			Code("INVALID_ARGS").
			Hint("Usage: mex outline <file>").
			Errorf("expected 1 argument, got %d", cmd.Args().Len())
	}

	path := cmd.Args().First()
	content, err := readInput(path)
	if err != nil {
		return err
	}

	if outline.IsBinary(content) {
		return oops.
			Code("INVALID_ARGS").
			With("path", path).
			Errorf("%q is not a text file", path)
	}

	return ui.RenderOutline(os.Stdout, ui.OutlineView{
		Path:   path,
		Size:   int64(len(content)),
		Result: outline.Parse(content),
	}, cmd.Bool("json"))
}
