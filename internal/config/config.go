package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional deltasync configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Theme    ThemeConfig    `toml:"theme"`

	// Unknown lists keys present in the file that no field consumed.
	Unknown []string `toml:"-"`
}

// DefaultsConfig holds persistent flag defaults. A nil field is unset.
type DefaultsConfig struct {
	BlockSize *string `toml:"block_size"`
	Verify    *bool   `toml:"verify"`
	BWLimit   *string `toml:"bwlimit"`
	Backup    *bool   `toml:"backup"`
	Suffix    *string `toml:"suffix"`
}

// ThemeConfig holds optional color overrides for the transfer report.
type ThemeConfig struct {
	Accent *string `toml:"accent"`
	Good   *string `toml:"good"`
	Bad    *string `toml:"bad"`
	Muted  *string `toml:"muted"`
	Bright *string `toml:"bright"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "deltasync", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path. A missing file yields a zero Config.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	for _, key := range md.Undecoded() {
		cfg.Unknown = append(cfg.Unknown, key.String())
	}
	return cfg, nil
}
