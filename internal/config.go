package internal

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the server's top-level configuration: a workdir for table/index
// files, the server listen port, and an index diagnostics section whose
// values are only recorded: nothing reads them, and the page-derived
// capacity constants are never overridden.
type Config struct {
	Storage struct {
		Workdir  string `mapstructure:"workdir"`
		PageSize int    `mapstructure:"page_size"`
	} `mapstructure:"storage"`
	Server struct {
		Port         int  `mapstructure:"port"`
		Debug        bool `mapstructure:"debug"`
		DrainSeconds int  `mapstructure:"drain_seconds"`
	} `mapstructure:"server"`
	Index struct {
		// LMaxOverride/IMaxOverride are diagnostic-only: the production
		// capacities are always floor((PageSize-8)/entrySize), derived from
		// page.Size. Non-zero values here are for operators comparing an
		// expected capacity against the live constants; the tree itself
		// never reads them.
		LMaxOverride int `mapstructure:"l_max_override"`
		IMaxOverride int `mapstructure:"i_max_override"`
	} `mapstructure:"index"`
}

// LoadConfig reads a YAML config file at path and unmarshals it into a
// Config through viper.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// WatchConfig re-reads path whenever it changes on disk and calls onChange
// with the freshly unmarshalled Config, using viper's fsnotify-backed
// watcher. Only server.debug is meant to be picked up live by callers; the
// storage/index sections describe on-disk layout and are fixed for the
// life of the process.
func WatchConfig(path string, onChange func(*Config)) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			slog.Warn("config: reload failed", "path", path, "err", err)
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
}

// DefaultConfig returns the hardcoded fallback used when no config file is
// given or found.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Storage.Workdir = "./data"
	cfg.Storage.PageSize = 1024
	cfg.Server.Port = 6543
	return cfg
}
