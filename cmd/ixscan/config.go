package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andreyvit/ixscan"
	"github.com/spf13/viper"
)

// Config is read from ixscan.yaml (or --config) and IXSCAN_* environment
// variables, e.g. IXSCAN_DB=/tmp/x.db.
//
//	db: data/ixscan.db
//	tables:
//	  - name: messages
//	    indexes:
//	      - name: by_channel
//	        fields: [channel]
type Config struct {
	DB       string        `mapstructure:"db"`
	Memory   bool          `mapstructure:"memory"`
	LogLevel string        `mapstructure:"log_level"`
	Tables   []TableConfig `mapstructure:"tables"`
}

type TableConfig struct {
	Name    string        `mapstructure:"name"`
	Indexes []IndexConfig `mapstructure:"indexes"`
}

type IndexConfig struct {
	Name   string   `mapstructure:"name"`
	Fields []string `mapstructure:"fields"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("db", "ixscan.db")
	v.SetDefault("log_level", "info")
	v.SetEnvPrefix("IXSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ixscan")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		DB:       v.GetString("db"),
		Memory:   v.GetBool("memory"),
		LogLevel: v.GetString("log_level"),
	}
	if err := v.UnmarshalKey("tables", &cfg.Tables); err != nil {
		return nil, fmt.Errorf("failed to parse tables: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) Schema() (scm *ixscan.Schema, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("invalid schema: %v", p)
		}
	}()
	scm = ixscan.NewSchema()
	for _, tc := range cfg.Tables {
		tbl := scm.AddTable(tc.Name)
		for _, ic := range tc.Indexes {
			tbl.AddIndex(ic.Name, ic.Fields)
		}
	}
	return scm, nil
}

func (cfg *Config) Logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})), nil
}
