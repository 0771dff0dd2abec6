package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

// keyDelim separates koanf key paths. Abbreviation and link keys such as
// "e.g." may contain dots.
const keyDelim = "::"

const localSuffix = ".local.toml"

func configFilenames() []string {
	return []string{"mex.toml", ".mex.toml"}
}

// LocalPath returns the override file merged over configPath, for
// example mex.local.toml next to mex.toml.
func LocalPath(configPath string) string {
	return strings.TrimSuffix(configPath, filepath.Ext(configPath)) + localSuffix
}

// Load reads configPath, or the nearest mex.toml when it is empty, merges
// its local override when present, then applies defaults and validates.
// Output is made absolute relative to the config file.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		found, err := FindConfigFile()
		if err != nil {
			return nil, err
		}
		configPath = found
	} else if err := requireFile(configPath); err != nil {
		return nil, err
	}

	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, oops.Wrapf(err, "resolving absolute config path")
	}

	k := koanf.New(keyDelim)
	if err := loadFile(k, absConfigPath); err != nil {
		return nil, err
	}

	localPath := LocalPath(absConfigPath)
	if _, statErr := os.Stat(localPath); statErr == nil {
		if err := loadFile(k, localPath); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if unmarshalErr := k.Unmarshal("", cfg); unmarshalErr != nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			With("path", absConfigPath).
			Hint("Fix config structure to match the mex.toml schema").
			Wrapf(unmarshalErr, "decoding config from %q", absConfigPath)
	}

	cfg.ConfigDir = filepath.Dir(absConfigPath)
	cfg.ConfigFile = absConfigPath
	cfg.ApplyDefaults()

	if valErr := cfg.Validate(); valErr != nil {
		return nil, oops.With("path", absConfigPath).Wrap(valErr)
	}

	if !filepath.IsAbs(cfg.Output) {
		cfg.Output = filepath.Clean(filepath.Join(cfg.ConfigDir, cfg.Output))
	}

	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return oops.
			Code("CONFIG_INVALID").
			With("path", path).
			Hint("Fix TOML syntax and required fields in your config").
			Wrapf(err, "loading config from %q", path)
	}

	return nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return oops.
			Code("CONFIG_NOT_FOUND").
			With("path", path).
			Hint("Create the file or pass a valid --config path").
			Errorf("config file %q does not exist", path)
	case err != nil:
		return oops.Wrapf(err, "checking config file %q", path)
	case info.IsDir():
		return oops.
			Code("CONFIG_INVALID").
			With("path", path).
			Errorf("config path %q is a directory", path)
	}

	return nil
}

// FindConfigFile looks for mex.toml or .mex.toml from the working
// directory upward.
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", oops.Wrapf(err, "getting working directory")
	}

	return Discover(dir)
}

// Discover walks from dir to the filesystem root and returns the first
// config file found. mex.toml wins over .mex.toml in the same directory.
func Discover(dir string) (string, error) {
	for {
		for _, name := range configFilenames() {
			candidate := filepath.Join(dir, name)
			info, err := os.Stat(candidate)
			if err == nil && !info.IsDir() {
				return candidate, nil
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return "", oops.Wrapf(err, "checking for config file at %q", candidate)
			}
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			return "", oops.
				Code("CONFIG_NOT_FOUND").
				Hint("Run 'mex init' to create a config file").
				Errorf("no mex.toml or .mex.toml found in any parent directory")
		}

		dir = parentDir
	}
}
