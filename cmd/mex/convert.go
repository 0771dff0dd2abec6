package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/mex/internal/config"
)

func newConvertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert markdown files (or stdin) to HTML",
		ArgsUsage: "[file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write HTML to a file instead of stdout"},
			&cli.BoolFlag{Name: "base", Usage: "Use plain Markdown without the Extra syntax"},
			&cli.IntFlag{Name: "tab-width", Usage: "Columns per tab stop"},
			&cli.BoolFlag{Name: "html4", Usage: "Close empty elements with > instead of />"},
			&cli.BoolFlag{Name: "no-markup", Usage: "Escape raw HTML"},
			&cli.BoolFlag{Name: "no-entities", Usage: "Escape every ampersand"},
			configFlag(),
		},
		Action: convertAction,
	}
}

func convertAction(_ context.Context, cmd *cli.Command) error {
	md, err := convertSettings(cmd)
	if err != nil {
		return err
	}

	parser := md.NewParser(slog.Default())

	inputs := cmd.Args().Slice()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	var html strings.Builder
	for _, input := range inputs {
		source, readErr := readInput(input)
		if readErr != nil {
			return readErr
		}

		html.WriteString(parser.Convert(string(source)))
	}

	if out := cmd.String("out"); out != "" {
		if writeErr := os.WriteFile(out, []byte(html.String()), 0o644); writeErr != nil {
			return oops.
				Code("WRITE_FAILED").
				With("path", out).
				Wrapf(writeErr, "writing html")
		}
		return nil
	}

	_, err = io.WriteString(os.Stdout, html.String())
	return err
}

// convertSettings starts from the [markdown] table of an explicit config
// file and applies the command line flags on top.
func convertSettings(cmd *cli.Command) (config.Markdown, error) {
	md := config.Markdown{Dialect: config.DefaultDialect}

	if configPath := cmd.String("config"); configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return md, err
		}
		md = cfg.Markdown
	}

	if cmd.Bool("base") {
		md.Dialect = config.DialectBase
	}
	if cmd.IsSet("tab-width") {
		tabWidth := cmd.Int("tab-width")
		if tabWidth <= 0 {
			return md, oops.
				Code("INVALID_ARGS").
				With("tab_width", tabWidth).
				Errorf("tab width must be positive")
		}
		md.TabWidth = tabWidth
	}
	if cmd.Bool("html4") {
		md.EmptyElementSuffix = ">"
	}
	if cmd.Bool("no-markup") {
		md.NoMarkup = true
	}
	if cmd.Bool("no-entities") {
		md.NoEntities = true
	}

	return md, nil
}

func readInput(input string) ([]byte, error) {
	if input == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, oops.Code("READ_FAILED").Wrapf(err, "reading stdin")
		}
		return data, nil
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, oops.
			Code("READ_FAILED").
			With("path", input).
			Wrapf(err, "reading markdown file")
	}

	return data, nil
}
