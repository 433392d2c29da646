package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig holds the application-level configuration
type AppConfig struct {
	OldDir    string          `mapstructure:"old_dir"`
	NewDir    string          `mapstructure:"new_dir"`
	Output    string          `mapstructure:"output"`
	Debug     bool            `mapstructure:"debug"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Diff      DiffConfig      `mapstructure:"diff"`
	Compare   CompareConfig   `mapstructure:"compare"`
	Report    ReportConfig    `mapstructure:"report"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Server    ServerConfig    `mapstructure:"server"`
}

type ExtractorConfig struct {
	Backend   string `mapstructure:"backend"`
	Validate  bool   `mapstructure:"validate"`
	Normalize string `mapstructure:"normalize"`
	TrimSpace bool   `mapstructure:"trim_space"`
	Password  string `mapstructure:"password"`
}

type DiffConfig struct {
	// LineNumbers is "merged" (position in the merged diff) or "source".
	LineNumbers string `mapstructure:"line_numbers"`
}

type CompareConfig struct {
	KeepGoing      bool `mapstructure:"keep_going"`
	IncludeMissing bool `mapstructure:"include_missing"`
	Workers        int  `mapstructure:"workers"`
}

type ReportConfig struct {
	JSONPath string `mapstructure:"json_path"`
}

type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	Passphrase string `mapstructure:"passphrase"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config is the configuration loaded by the last successful LoadConfig call.
var Config *AppConfig

// EnvPrefix prefixes every environment override, e.g. PDFDIFF_OLD_DIR or
// PDFDIFF_CACHE_ENABLED.
const EnvPrefix = "PDFDIFF"

func setDefaults(v *viper.Viper) {
	v.SetDefault("old_dir", "./old")
	v.SetDefault("new_dir", "./new")
	v.SetDefault("output", "comparison_report.pdf")
	v.SetDefault("debug", false)

	v.SetDefault("extractor.backend", "rsc")
	v.SetDefault("extractor.validate", false)
	v.SetDefault("extractor.normalize", "none")
	v.SetDefault("extractor.trim_space", false)
	v.SetDefault("extractor.password", "")

	v.SetDefault("diff.line_numbers", "merged")

	v.SetDefault("compare.keep_going", false)
	v.SetDefault("compare.include_missing", false)
	v.SetDefault("compare.workers", 1)

	v.SetDefault("report.json_path", "")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "./.pdfdiff-cache")
	v.SetDefault("cache.passphrase", "")

	v.SetDefault("server.addr", ":8080")
}

// LoadConfig reads config.yaml from path (and the working directory),
// applies PDFDIFF_* environment overrides and fills in defaults. A missing
// config file is not an error.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var appConfig AppConfig
	if err := v.Unmarshal(&appConfig); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, err
	}

	Config = &appConfig
	return &appConfig, nil
}

// Validate rejects values the rest of the program cannot act on.
func (c *AppConfig) Validate() error {
	switch c.Extractor.Backend {
	case "rsc", "ledongthuc", "tabula":
	default:
		return fmt.Errorf("unknown extractor backend %q", c.Extractor.Backend)
	}
	switch c.Extractor.Normalize {
	case "", "none", "nfc", "nfkc":
	default:
		return fmt.Errorf("unknown normalization form %q", c.Extractor.Normalize)
	}
	switch c.Diff.LineNumbers {
	case "", "merged", "source":
	default:
		return fmt.Errorf("unknown diff.line_numbers mode %q", c.Diff.LineNumbers)
	}
	if c.Compare.Workers < 1 {
		c.Compare.Workers = 1
	}
	if c.Output == "" {
		return errors.New("output path must not be empty")
	}
	return nil
}
