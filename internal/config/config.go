package config

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/KaramelBytes/flowviz-cli/internal/chart"
	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const dirName = ".flowviz"

// Global configuration structure.
type Global struct {
	// Dataset reading
	Delimiter          string `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	MaxRows            int    `mapstructure:"max_rows" yaml:"max_rows"`
	SheetName          string `mapstructure:"sheet_name" yaml:"sheet_name"`

	// Output
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	PlotlyURL string `mapstructure:"plotly_url" yaml:"plotly_url"`

	// HTTP API
	ServerAddr string `mapstructure:"server_addr" yaml:"server_addr"`
	// Users maps usernames to bcrypt hashes (see `flowviz user hash`).
	Users map[string]string `mapstructure:"users" yaml:"users"`
}

// Dir returns ~/.flowviz.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.flowviz/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// Password hashes live here; keep the file private.
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("FLOWVIZ")
	v.AutomaticEnv()

	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("max_rows", dataset.DefaultOptions().MaxRows)
	v.SetDefault("sheet_name", "")
	v.SetDefault("output_dir", "")
	v.SetDefault("plotly_url", chart.DefaultPlotlyURL)
	v.SetDefault("server_addr", "127.0.0.1:8080")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Users == nil {
		c.Users = map[string]string{}
	}
	return &c, nil
}

// DatasetOptions maps the reading keys onto dataset reader options.
func (c *Global) DatasetOptions() dataset.Options {
	opt := dataset.DefaultOptions()
	if c == nil {
		return opt
	}
	if c.MaxRows > 0 {
		opt.MaxRows = c.MaxRows
	}
	opt.Delimiter = Rune(c.Delimiter)
	opt.DecimalSeparator = Rune(c.DecimalSeparator)
	opt.ThousandsSeparator = Rune(c.ThousandsSeparator)
	opt.SheetName = c.SheetName
	return opt
}

// Rune decodes a single-character setting. "\t" and "tab" mean a tab;
// empty means auto-detect (0).
func Rune(s string) rune {
	switch s {
	case "":
		return 0
	case `\t`, "tab":
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
