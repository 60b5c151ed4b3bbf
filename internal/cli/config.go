package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// TOML keys use the Go field names.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Config holds driver settings. Command-line flags override file values.
type Config struct {
	Verbose   bool
	Debug     bool
	LogFormat string

	PrintAST    bool
	PrintIR     bool
	Evaluate    bool
	StopOnError bool
	// FillDeclarations lets a definition supply the body of an earlier
	// extern instead of failing as a redefinition.
	FillDeclarations bool `toml:",omitempty"`

	// MaxSteps bounds each top-level evaluation; zero means unlimited.
	MaxSteps int
	// EmitLLVM is the path `build` writes LLVM assembly to.
	EmitLLVM string `toml:",omitempty"`
	// RequiresVersion is a semver constraint the running build must meet.
	RequiresVersion string `toml:",omitempty"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		LogFormat: "text",
		PrintIR:   true,
		Evaluate:  true,
		MaxSteps:  10_000_000,
	}
}

// LoadConfig loads configuration from file. A missing file yields the
// defaults; unknown keys are rejected.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath == "" {
		return config, nil
	}

	f, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(config)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(configPath + ", " + err.Error())
	}
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return config, nil
}

// Validate checks field values and the version constraint.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "", "text", "json", "terminal":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("MaxSteps must not be negative, got %d", c.MaxSteps)
	}
	return CheckVersion(c.RequiresVersion)
}

// SaveConfig saves configuration to file
func (c *Config) SaveConfig(configPath string) error {
	data, err := tomlSettings.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
