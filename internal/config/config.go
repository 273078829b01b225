package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PIPELINESTUDIO_"

// Config holds everything the application needs to run.
type Config struct {
	// Namespace scopes catalog requests and templates.
	Namespace string `yaml:"namespace"`

	// ManifestsPath is a directory or file of HCL plugin manifests. It is
	// used when CatalogURL is empty.
	ManifestsPath string `yaml:"manifests_path"`
	// CatalogURL is the base URL of a remote catalog service.
	CatalogURL     string        `yaml:"catalog_url"`
	CatalogTimeout time.Duration `yaml:"catalog_timeout"`

	// TemplatesDB is the sqlite database of plugin and pipeline templates.
	TemplatesDB string `yaml:"templates_db"`

	// CanvasURL, if set, is a socket.io endpoint that receives graph changes.
	CanvasURL       string `yaml:"canvas_url"`
	CanvasNamespace string `yaml:"canvas_namespace"`

	// DefaultArtifact is the name[:version[:scope]] selected at start.
	DefaultArtifact string `yaml:"default_artifact"`

	LogFormat       string `yaml:"log_format"`
	LogLevel        string `yaml:"log_level"`
	HealthcheckPort int    `yaml:"healthcheck_port"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Namespace:      "default",
		ManifestsPath:  "manifests",
		CatalogTimeout: 10 * time.Second,
		TemplatesDB:    "pipelinestudio.db",
		LogFormat:      "json",
		LogLevel:       "info",
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and the environment. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := loadEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func loadEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("NAMESPACE", &cfg.Namespace)
	str("MANIFESTS_PATH", &cfg.ManifestsPath)
	str("CATALOG_URL", &cfg.CatalogURL)
	str("TEMPLATES_DB", &cfg.TemplatesDB)
	str("CANVAS_URL", &cfg.CanvasURL)
	str("CANVAS_NAMESPACE", &cfg.CanvasNamespace)
	str("DEFAULT_ARTIFACT", &cfg.DefaultArtifact)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("LOG_LEVEL", &cfg.LogLevel)

	if v, ok := lookup(EnvPrefix + "CATALOG_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sCATALOG_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.CatalogTimeout = d
	}
	if v, ok := lookup(EnvPrefix + "HEALTHCHECK_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sHEALTHCHECK_PORT: %w", EnvPrefix, err)
		}
		cfg.HealthcheckPort = port
	}
	return nil
}

// Validate normalizes the log settings and checks every field.
func (c *Config) Validate() error {
	c.LogFormat = strings.ToLower(c.LogFormat)
	c.LogLevel = strings.ToLower(c.LogLevel)

	var errs []error
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, errors.New("invalid log-format: must be 'text' or 'json'"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'"))
	}
	if c.Namespace == "" {
		errs = append(errs, errors.New("namespace cannot be empty"))
	}
	if c.CatalogURL == "" && c.ManifestsPath == "" {
		errs = append(errs, errors.New("either catalog_url or manifests_path must be set"))
	}
	if c.CatalogTimeout < 0 {
		errs = append(errs, errors.New("catalog_timeout cannot be negative"))
	}
	if c.HealthcheckPort < 0 || c.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid healthcheck_port %d", c.HealthcheckPort))
	}
	if c.DefaultArtifact != "" {
		if _, err := pipeline.ParseArtifact(c.DefaultArtifact); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Artifact returns the parsed DefaultArtifact, or the zero artifact when it
// is unset.
func (c *Config) Artifact() (pipeline.Artifact, error) {
	if c.DefaultArtifact == "" {
		return pipeline.Artifact{}, nil
	}
	return pipeline.ParseArtifact(c.DefaultArtifact)
}
