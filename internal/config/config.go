// Package config loads tsmodel settings from .tsmodel.yaml, .env and the
// process environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, .env, the
// process environment. Command-line flags are applied by the caller on top.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name, looked up in the project root.
const FileName = ".tsmodel.yaml"

// Defaults.
const (
	DefaultMaxTypeDepth = 32
	DefaultMaxFileSize  = 1_000_000
)

// Environment variables read by Load.
const (
	EnvDeep         = "TSMODEL_DEEP"
	EnvModules      = "TSMODEL_MODULES"
	EnvMaxTypeDepth = "TSMODEL_MAX_TYPE_DEPTH"
	EnvLogLevel     = "TSMODEL_LOG_LEVEL"
)

// Config is the resolved configuration of one run.
type Config struct {
	Include             []string            `yaml:"include"`
	Exclude             []string            `yaml:"exclude"`
	IncludeDeclarations bool                `yaml:"includeDeclarations"`
	DeepDependencies    bool                `yaml:"deepDependencies"`
	ModuleClassifiers   bool                `yaml:"moduleClassifiers"`
	MaxTypeDepth        int                 `yaml:"maxTypeDepth"`
	MaxFileSize         int64               `yaml:"maxFileSize"`
	BaseURL             string              `yaml:"baseUrl"`
	Paths               map[string][]string `yaml:"paths"`
	Frameworks          map[string]string   `yaml:"frameworks"`
	FailOnUnresolved    bool                `yaml:"failOnUnresolved"`
	LogLevel            string              `yaml:"logLevel"`

	// Source is the config file that was read, or "".
	Source string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxTypeDepth: DefaultMaxTypeDepth,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// Load resolves the configuration of the project at root. path names an
// explicit config file, which must exist; when empty, root/.tsmodel.yaml is
// read if present. getenv reads the process environment; nil means os.Getenv.
func Load(root, path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, errors.Errorf("config %s: %w", path, err)
		}
		cfg.Source = path
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, errors.Errorf("reading config: %w", err)
	}

	env, err := readDotEnv(filepath.Join(root, ".env"))
	if err != nil {
		return nil, err
	}
	lookup := func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return env[key]
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		// A file with no document decodes to io.EOF; keep the defaults.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.WithStack(err)
	}
	return nil
}

// readDotEnv reads a .env file without touching the process environment.
func readDotEnv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, errors.Errorf("reading %s: %w", path, err)
	}
	return env, nil
}

func (c *Config) applyEnv(lookup func(string) string) error {
	for _, b := range []struct {
		key string
		dst *bool
	}{
		{EnvDeep, &c.DeepDependencies},
		{EnvModules, &c.ModuleClassifiers},
	} {
		v := lookup(b.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Errorf("%s: %w", b.key, err)
		}
		*b.dst = parsed
	}
	if v := lookup(EnvMaxTypeDepth); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Errorf("%s: %w", EnvMaxTypeDepth, err)
		}
		c.MaxTypeDepth = n
	}
	if v := lookup(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.MaxTypeDepth < 1 {
		return errors.Errorf("maxTypeDepth must be positive, got %d", c.MaxTypeDepth)
	}
	if c.MaxFileSize < 1 {
		return errors.Errorf("maxFileSize must be positive, got %d", c.MaxFileSize)
	}
	for pattern, targets := range c.Paths {
		if strings.Count(pattern, "*") > 1 {
			return errors.Errorf("paths pattern %q has more than one '*'", pattern)
		}
		if len(targets) == 0 {
			return errors.Errorf("paths pattern %q has no targets", pattern)
		}
	}
	return nil
}
