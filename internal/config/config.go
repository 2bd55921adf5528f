package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-medallion/internal/credentials"
	"github.com/askiada/go-medallion/internal/engine"
	"github.com/askiada/go-medallion/internal/gold"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config defines the settings of the medallion CLI.
type Config struct {
	Base      string `yaml:"base"`
	Azure     bool   `yaml:"azure"`
	Account   string `yaml:"account"`
	Container string `yaml:"container"`
	SASToken  string `yaml:"-"`
	EnvFile   string `yaml:"env_file"`
	AppName   string `yaml:"app_name"`
	Workers   int    `yaml:"workers"`
	// Draw is the DOT file of the bronze load graph.
	Draw        string `yaml:"draw"`
	MetricsFile string `yaml:"metrics_file"`
	// GoldModel defaults to gold_model.yaml in Base.
	GoldModel string `yaml:"gold_model"`
}

// Default returns a Config with the defaults of the CLI.
func Default() Config {
	return Config{
		Base:    ".",
		EnvFile: credentials.DefaultEnvFile,
		AppName: engine.DefaultAppName,
		Workers: 4,
	}
}

// LoadFromFile loads the defaults overridden by the YAML file at path.
// Unknown keys are rejected.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "unable to read config file")
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var fileCfg Config
	err = decoder.Decode(&fileCfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrapf(ErrInvalidConfig, "unable to parse %s: %v", path, err)
	}

	return Default().Merge(fileCfg), nil
}

// Merge returns c overridden by the non-zero fields of override.
func (c Config) Merge(override Config) Config {
	if override.Base != "" {
		c.Base = override.Base
	}
	if override.Azure {
		c.Azure = true
	}
	if override.Account != "" {
		c.Account = override.Account
	}
	if override.Container != "" {
		c.Container = override.Container
	}
	if override.SASToken != "" {
		c.SASToken = override.SASToken
	}
	if override.EnvFile != "" {
		c.EnvFile = override.EnvFile
	}
	if override.AppName != "" {
		c.AppName = override.AppName
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.Draw != "" {
		c.Draw = override.Draw
	}
	if override.MetricsFile != "" {
		c.MetricsFile = override.MetricsFile
	}
	if override.GoldModel != "" {
		c.GoldModel = override.GoldModel
	}

	return c
}

// Validate checks the settings that do not depend on the environment.
// Credentials are checked when the download starts.
func (c Config) Validate() error {
	if c.Base == "" {
		return errors.Wrap(ErrInvalidConfig, "base is required")
	}
	if c.AppName == "" {
		return errors.Wrap(ErrInvalidConfig, "app_name is required")
	}
	if c.Workers <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "workers must be positive, got %d", c.Workers)
	}

	return nil
}

// GoldModelPath returns the gold model file of the run.
func (c Config) GoldModelPath() string {
	if c.GoldModel != "" {
		return c.GoldModel
	}

	return filepath.Join(c.Base, gold.DefaultModelFile)
}
