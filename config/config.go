// Package config holds the settings of a renewal run.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"
)

const (
	DefaultCAURI          = "https://localhost:8443"
	DefaultEntryList      = "-"
	DefaultRenewalDays    = 30
	DefaultTimeoutSeconds = 30
	DefaultLogLevel       = "info"
)

type Exporter struct {
	Type   string                 `yaml:"type" toml:"type"`
	Config map[string]interface{} `yaml:"config" toml:"config"`
}

type Config struct {
	CAURI          string      `yaml:"ca_uri" toml:"ca_uri"`
	EntryList      string      `yaml:"entry_list" toml:"entry_list"`
	RenewalDays    int         `yaml:"renewal_days" toml:"renewal_days"`
	TrustBundle    string      `yaml:"trust_bundle" toml:"trust_bundle"`
	TimeoutSeconds int64       `yaml:"timeout_seconds" toml:"timeout_seconds"`
	LogLevel       string      `yaml:"log_level" toml:"log_level"`
	Exporters      []*Exporter `yaml:"exporters" toml:"exporters"`
}

func Default() *Config {
	return &Config{
		CAURI:          DefaultCAURI,
		EntryList:      DefaultEntryList,
		RenewalDays:    DefaultRenewalDays,
		TimeoutSeconds: DefaultTimeoutSeconds,
		LogLevel:       DefaultLogLevel,
	}
}

// Load reads a YAML file, or a TOML file when path ends in ".toml", on top
// of the defaults.
func Load(
	path string,
) (
	*Config,
	error,
) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.UnmarshalStrict(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) Validate() error {
	if c.CAURI == "" {
		return errors.New("config: ca_uri cannot be empty")
	}
	u, err := url.Parse(c.CAURI)
	if err != nil {
		return fmt.Errorf("config: ca_uri is invalid: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("config: ca_uri must use https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("config: ca_uri has no host")
	}
	if c.EntryList == "" {
		return errors.New("config: entry_list cannot be empty")
	}
	if c.RenewalDays <= 0 {
		return errors.New("config: renewal_days must be positive")
	}
	if c.TimeoutSeconds <= 0 {
		return errors.New("config: timeout_seconds must be positive")
	}
	for index, e := range c.Exporters {
		if e == nil || e.Type == "" {
			return fmt.Errorf("config: exporter %d has no type", index)
		}
	}

	return nil
}
