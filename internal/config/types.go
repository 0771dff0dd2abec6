package config

import (
	"errors"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/g5becks/mex/internal/markdown"
)

const (
	DefaultOutput           = "site"
	DefaultDialect          = DialectExtra
	DialectExtra            = "extra"
	DialectBase             = "base"
	SourceTypeDir           = "dir"
	SourceTypeURL           = "url"
	validationTagRequiredIf = "required_if"
)

func DefaultPatterns() []string {
	return []string{"**/*.md", "**/*.markdown", "**/*.text"}
}

type Config struct {
	Output     string            `koanf:"output"   validate:"omitempty,dirpath"`
	Markdown   Markdown          `koanf:"markdown"`
	Sources    map[string]Source `koanf:"sources"  validate:"dive"`
	ConfigDir  string            `koanf:"-"`
	ConfigFile string            `koanf:"-"`
}

// Markdown mirrors markdown.Options. Empty strings keep the converter
// defaults.
type Markdown struct {
	Dialect               string            `koanf:"dialect"                 validate:"omitempty,oneof=extra base"`
	TabWidth              int               `koanf:"tab_width"               validate:"omitempty,min=1,max=16"`
	EmptyElementSuffix    string            `koanf:"empty_element_suffix"`
	NoMarkup              bool              `koanf:"no_markup"`
	NoEntities            bool              `koanf:"no_entities"`
	CodeClassPrefix       string            `koanf:"code_class_prefix"`
	FootnoteLinkClass     string            `koanf:"footnote_link_class"`
	FootnoteBacklinkClass string            `koanf:"footnote_backlink_class"`
	FootnoteLinkTitle     string            `koanf:"footnote_link_title"`
	FootnoteBacklinkTitle string            `koanf:"footnote_backlink_title"`
	FootnoteIDPrefix      string            `koanf:"footnote_id_prefix"`
	URLs                  map[string]string `koanf:"urls"`
	Titles                map[string]string `koanf:"titles"`
	Abbreviations         map[string]string `koanf:"abbreviations"`
}

type Source struct {
	Type     string   `koanf:"type"     validate:"required,oneof=dir url"`
	Path     string   `koanf:"path"     validate:"required_if=Type dir"`
	Patterns []string `koanf:"patterns" validate:"dive,glob"`
	Exclude  []string `koanf:"exclude"  validate:"dive,glob"`
	URL      string   `koanf:"url"      validate:"required_if=Type url,omitempty,url"`
	Filename string   `koanf:"filename"`
	Out      string   `koanf:"out"`
}

// Options builds converter options from the [markdown] table.
func (m Markdown) Options(logger *slog.Logger) markdown.Options {
	opts := markdown.DefaultOptions()
	opts.Logger = logger
	opts.NoMarkup = m.NoMarkup
	opts.NoEntities = m.NoEntities
	opts.CodeClassPrefix = m.CodeClassPrefix
	opts.FootnoteLinkTitle = m.FootnoteLinkTitle
	opts.FootnoteBacklinkTitle = m.FootnoteBacklinkTitle
	opts.FootnoteIDPrefix = m.FootnoteIDPrefix
	opts.PredefinedURLs = m.URLs
	opts.PredefinedTitles = m.Titles
	opts.PredefinedAbbreviations = m.Abbreviations

	if m.TabWidth > 0 {
		opts.TabWidth = m.TabWidth
	}
	if m.EmptyElementSuffix != "" {
		opts.EmptyElementSuffix = m.EmptyElementSuffix
	}
	if m.FootnoteLinkClass != "" {
		opts.FootnoteLinkClass = m.FootnoteLinkClass
	}
	if m.FootnoteBacklinkClass != "" {
		opts.FootnoteBacklinkClass = m.FootnoteBacklinkClass
	}

	return opts
}

// NewParser returns a parser for the configured dialect.
func (m Markdown) NewParser(logger *slog.Logger) *markdown.Parser {
	opts := m.Options(logger)
	if m.Dialect == DialectBase {
		return markdown.NewBase(opts)
	}

	return markdown.New(opts)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
		return doublestar.ValidatePattern(fl.Field().String())
	})

	return v
}

func (c *Config) ApplyDefaults() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}

	if c.Markdown.Dialect == "" {
		c.Markdown.Dialect = DefaultDialect
	}

	if c.Sources == nil {
		c.Sources = make(map[string]Source)
	}

	for sourceName, sourceCfg := range c.Sources {
		if sourceCfg.Type == SourceTypeDir && len(sourceCfg.Patterns) == 0 {
			sourceCfg.Patterns = DefaultPatterns()
		}

		c.Sources[sourceName] = sourceCfg
	}
}

func (c *Config) Validate() error {
	v := newValidator()

	if valErr := v.Struct(c.Markdown); valErr != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(valErr, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return oops.
				Code("CONFIG_INVALID").
				With("section", "markdown").
				With("field", strings.ToLower(fe.Field())).
				With("tag", fe.Tag()).
				Hint("dialect is extra or base; tab_width is between 1 and 16").
				Errorf("invalid markdown option %q", strings.ToLower(fe.Field()))
		}

		return oops.Code("CONFIG_INVALID").Wrapf(valErr, "validating markdown options")
	}

	names := slices.Sorted(maps.Keys(c.Sources))
	for _, sourceName := range names {
		sourceCfg := c.Sources[sourceName]
		valErr := v.Struct(sourceCfg)
		if valErr == nil {
			continue
		}

		var validationErrors validator.ValidationErrors
		if !errors.As(valErr, &validationErrors) {
			return oops.
				Code("CONFIG_INVALID").
				With("source", sourceName).
				Wrapf(valErr, "validating source %q", sourceName)
		}

		for _, fe := range validationErrors {
			return mapValidationError(sourceName, sourceCfg, fe)
		}
	}

	return nil
}

func mapValidationError(sourceName string, sourceCfg Source, fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())

	switch {
	case fe.Tag() == "oneof" && field == "type", fe.Tag() == "required" && field == "type":
		return oops.
			Code("UNKNOWN_SOURCE_TYPE").
			With("source", sourceName).
			With("type", sourceCfg.Type).
			Hint("Supported types: dir, url").
			Errorf("unknown source type %q for source %q", sourceCfg.Type, sourceName)

	case fe.Tag() == validationTagRequiredIf && field == "path":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", "path").
			Hint("Set path to a directory relative to the config file").
			Errorf("missing path for source %q", sourceName)

	case fe.Tag() == validationTagRequiredIf && field == "url":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", "url").
			Hint("Set url for url sources").
			Errorf("missing url for source %q", sourceName)

	case fe.Tag() == "glob":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", field).
			With("value", fe.Value()).
			Hint("Patterns use doublestar syntax, e.g. **/*.md").
			Errorf("invalid glob %q in source %q", fe.Value(), sourceName)

	default:
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", field).
			With("tag", fe.Tag()).
			Errorf("validation failed for field %q in source %q", field, sourceName)
	}
}

// OutputDir is where the HTML of a source is written.
func (c *Config) OutputDir(sourceName string, sourceCfg Source) string {
	baseOutputDir := c.Output
	if !filepath.IsAbs(baseOutputDir) {
		baseOutputDir = filepath.Join(c.ConfigDir, c.Output)
	}

	if sourceCfg.Out != "" {
		return filepath.Join(baseOutputDir, sourceCfg.Out)
	}

	return filepath.Join(baseOutputDir, sourceName)
}

// SourceDir resolves the path of a dir source against the config directory.
func (c *Config) SourceDir(sourceCfg Source) string {
	if filepath.IsAbs(sourceCfg.Path) {
		return sourceCfg.Path
	}

	return filepath.Join(c.ConfigDir, sourceCfg.Path)
}
