// Package config loads run settings and the line-oriented input files that
// name the tables, source pairs and ignored columns of a run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/TFMV/reconcile/report"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RECONCILE_OUTPUT_DIR.
const EnvPrefix = "RECONCILE"

// --- Configuration Structs ---

// InputConfig locates the line-oriented input files.
type InputConfig struct {
	Dir     string `mapstructure:"dir" default:"."`
	Tables  string `mapstructure:"tables" default:"Tables.txt"`
	Sources string `mapstructure:"sources" default:"DataSources.txt"`
	Ignore  string `mapstructure:"ignore" default:"ColumnsToIgnore.txt"`
}

// Path resolves an input file name against Dir.
func (c InputConfig) Path(name string) string {
	if filepath.IsAbs(name) || c.Dir == "" {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// OutputConfig selects where reports go.
type OutputConfig struct {
	Dir   string             `mapstructure:"dir" default:"results"`
	Sink  string             `mapstructure:"sink" default:"file"`
	Minio report.MinioConfig `mapstructure:"minio"`
}

// SourceConfig describes how snapshots are fetched.
type SourceConfig struct {
	Provider string `mapstructure:"provider" default:"sql"`
	Driver   string `mapstructure:"driver" default:"sqlserver"`
	// DSN may contain {server} and {database}, filled from each data source.
	DSN        string `mapstructure:"dsn" default:"sqlserver://{server}?database={database}"`
	ADBCDriver string `mapstructure:"adbc_driver"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `mapstructure:"level" default:"info"`
	File  string `mapstructure:"file" default:"reconcile.log"`
}

// Config is the full run configuration.
type Config struct {
	Input   InputConfig  `mapstructure:"input"`
	Output  OutputConfig `mapstructure:"output"`
	Source  SourceConfig `mapstructure:"source"`
	Log     LogConfig    `mapstructure:"log"`
	Workers int          `mapstructure:"workers" default:"4"`
}

// --- Load Configuration ---

// Load reads configuration from an optional YAML file, a .env file and
// RECONCILE_* environment variables, in increasing order of precedence.
// An empty configPath looks for reconcile.yaml in the working directory and
// carries on with defaults when there is none.
func Load(configPath string) (*Config, error) {
	// Missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	bindValues(v, Config{}, "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("reconcile")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Source.DSN = os.ExpandEnv(cfg.Source.DSN)

	return &cfg, nil
}

// bindValues registers every key with its default tag so that AutomaticEnv
// can resolve keys that appear in no config file.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}
		v.SetDefault(key, field.Tag.Get("default"))
	}
}

// --- Validation Functions ---

func validate(condition bool, format string, a ...any) error {
	if !condition {
		return fmt.Errorf(format, a...)
	}
	return nil
}

// Validate checks settings that would otherwise fail mid-run.
func (c *Config) Validate() error {
	if err := validate(c.Workers > 0, "workers must be positive, got %d", c.Workers); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	return nil
}

func (c *OutputConfig) Validate() error {
	switch c.Sink {
	case "file":
		return validate(c.Dir != "", "dir is required for the file sink")
	case "minio":
		if err := validate(c.Minio.Endpoint != "", "minio endpoint is required"); err != nil {
			return err
		}
		return validate(c.Minio.Bucket != "", "minio bucket is required")
	}
	return fmt.Errorf("unknown sink %q", c.Sink)
}

func (c *SourceConfig) Validate() error {
	switch c.Provider {
	case "sql":
		if err := validate(c.Driver != "", "driver is required"); err != nil {
			return err
		}
		return validate(c.DSN != "", "dsn is required")
	case "adbc":
		return validate(c.ADBCDriver != "", "adbc_driver is required for the adbc provider")
	}
	return fmt.Errorf("unknown provider %q", c.Provider)
}
