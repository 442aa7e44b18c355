// Package config loads the unitytools configuration from defaults, an
// optional YAML file and UNITYTOOLS_ environment variables, in increasing
// order of precedence. Command line flags bound to the same viper instance
// take precedence over all of them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read, e.g. UNITYTOOLS_LOG_LEVEL.
const EnvPrefix = "UNITYTOOLS"

type Config struct {
	// Assets is the directory scanned for archives.
	Assets string `mapstructure:"assets"`
	// Output is the directory exported files are written to.
	Output  string        `mapstructure:"output"`
	Workers int           `mapstructure:"workers"`
	Log     LogConfig     `mapstructure:"log"`
	Texture TextureConfig `mapstructure:"texture"`
	Dump    DumpConfig    `mapstructure:"dump"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type TextureConfig struct {
	// Flip turns images upright. Unity stores rows bottom-up.
	Flip bool `mapstructure:"flip"`
}

type DumpConfig struct {
	Compress bool `mapstructure:"compress"`
}

// Load reads the configuration into v and returns it. An explicit cfgFile
// must exist; otherwise unitytools.yaml in the working directory and
// $HOME/.unitytools/config.yaml are tried and may be absent.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("unitytools")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if cfgFile == "" {
			if err := readHomeConfig(v); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readHomeConfig(v *viper.Viper) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(home, ".unitytools", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("assets", ".")
	v.SetDefault("output", "out")
	v.SetDefault("workers", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("texture.flip", true)
	v.SetDefault("dump.compress", true)
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Workers)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Level as a slog level name.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}
