package main

import (
	"context"
	"errors"
	"os"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"
)

const starterConfig = `# mex build configuration
output = "site"

[markdown]
# "extra" adds tables, fenced code, footnotes, definition lists and
# abbreviations. "base" is plain Markdown.
dialect = "extra"
tab_width = 4
# empty_element_suffix = ">"
# code_class_prefix = "language-"

# [markdown.abbreviations]
# HTML = "Hyper Text Markup Language"

[sources.docs]
type = "dir"
path = "docs"
patterns = ["**/*.md"]
exclude = ["drafts/**"]

# [sources.changelog]
# type = "url"
# url = "https://example.com/CHANGELOG.md"
`

func newInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a starter mex.toml in the current directory",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing mex.toml"},
		},
		Action: initAction,
	}
}

func initAction(_ context.Context, cmd *cli.Command) error {
	const path = "mex.toml"

	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return oops.
			Code("CONFIG_EXISTS").
			With("path", path).
			Hint("Pass --force to overwrite it").
			Errorf("%s already exists", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return oops.
			With("path", path).
			Wrapf(err, "checking for existing config")
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return oops.
			Code("WRITE_FAILED").
			With("path", path).
			Wrapf(err, "writing starter config")
	}

	return nil
}
