// Package config loads run configurations from YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/perf"
)

// engines and formats
const (
	EngineNative = "native"
	EngineZMQ    = "zmq"

	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Config is a run configuration, command line arguments override it.
type Config struct {
	Engine    string              `yaml:"engine"`
	IOThreads int                 `yaml:"io_threads"`
	Endpoint  perf.EndpointConfig `yaml:"endpoint"`
	// Options are native engine options by name, such as tcp.NoDelay or socket.SendQueueSize.
	Options     map[string]interface{} `yaml:"options"`
	Format      string                 `yaml:"format"`
	LinkGbps    float64                `yaml:"link_gbps"`
	MetricsAddr string                 `yaml:"metrics_addr"`
	LogLevel    string                 `yaml:"log_level"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Engine:    EngineNative,
		IOThreads: 1,
		Endpoint:  perf.DefaultEndpointConfig(),
		Format:    FormatText,
		LogLevel:  "info",
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads YAML from r over the defaults, unknown fields are errors.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineNative, EngineZMQ:
	default:
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	switch c.Format {
	case FormatText, FormatJSON, FormatCSV:
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if c.IOThreads < 0 {
		return fmt.Errorf("negative io_threads %d", c.IOThreads)
	}
	if c.LinkGbps < 0 {
		return fmt.Errorf("negative link_gbps %g", c.LinkGbps)
	}
	if c.Engine != EngineNative && len(c.Options) > 0 {
		return fmt.Errorf("options are only supported by the %s engine", EngineNative)
	}
	_, err := c.OptionValues()
	return err
}

// OptionValues parses Options.
func (c *Config) OptionValues() (options.OptionValues, error) {
	ovs, err := options.ParseOptionValues(c.Options)
	if err != nil {
		return nil, fmt.Errorf("option %w", err)
	}
	return ovs, nil
}
