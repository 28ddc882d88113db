package project

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigName is the per-project configuration file, looked up in the
// project directory.
const ConfigName = "esync.yaml"

// Duration wraps time.Duration with "30s"-style YAML decoding
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the project-level configuration
type Config struct {
	// Project overrides the project name derived from the source file
	Project string `yaml:"project,omitempty"`

	// Source is the declarative circuit file, relative to the project dir
	Source string `yaml:"source"`

	// Placement controls the default grid for never-placed components
	Placement PlacementConfig `yaml:"placement,omitempty"`

	// PowerNets are realized as power ports instead of labels
	PowerNets []string `yaml:"power_nets,omitempty"`

	// KicadCLI is the external tool binary, resolved via PATH when bare
	KicadCLI string `yaml:"kicad_cli,omitempty"`

	// ToolTimeout bounds each external tool invocation
	ToolTimeout Duration `yaml:"tool_timeout,omitempty"`
}

// PlacementConfig is the default placement grid. Origins are pointers so
// an explicit 0 is distinguishable from an absent key.
type PlacementConfig struct {
	OriginX *float64 `yaml:"origin_x,omitempty"`
	OriginY *float64 `yaml:"origin_y,omitempty"`
	Spacing float64  `yaml:"spacing,omitempty"`
	Columns int      `yaml:"columns,omitempty"`
}

// DefaultConfig returns the configuration used when no esync.yaml exists
func DefaultConfig() *Config {
	return &Config{
		KicadCLI:    "kicad-cli",
		ToolTimeout: Duration(30 * time.Second),
		PowerNets:   []string{"GND", "VCC", "VDD", "VSS", "+3V3", "+5V", "+12V"},
	}
}

// LoadConfig reads esync.yaml from the project directory, falling back to
// defaults when the file does not exist.
func LoadConfig(dir string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Join(dir, ConfigName))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigName, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigName, err)
	}
	if cfg.KicadCLI == "" {
		cfg.KicadCLI = "kicad-cli"
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = Duration(30 * time.Second)
	}
	return cfg, nil
}
