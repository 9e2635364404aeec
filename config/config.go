// Package config loads the reasoner configuration: engine options, the
// absorption flags, query budgets and logging.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nodeadmin/tableau/tableau"
	"github.com/nodeadmin/tableau/todo"
)

// Absorption letters understood by the kernel. Only C and E change what it
// does; the others are accepted for compatibility and ignored.
const AbsorptionLetters = "BTECFSR"

// DefaultAbsorption is the flag set used when none is configured.
const DefaultAbsorption = "BTECFSR"

// Config holds all reasoner configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Query   QueryConfig   `yaml:"query"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig selects the search strategy.
type EngineConfig struct {
	Logic              string `yaml:"logic" validate:"oneof=auto SH SHI SHIQ"`
	AnywhereBlocking   bool   `yaml:"anywhere_blocking"`
	LazyBlocking       bool   `yaml:"lazy_blocking"`
	SemanticBranching  bool   `yaml:"semantic_branching"`
	Backjumping        bool   `yaml:"backjumping"`
	DynamicBackjumping bool   `yaml:"dynamic_backjumping"`
	Priorities         string `yaml:"priorities" validate:"priorities"`
	Absorption         string `yaml:"absorption" validate:"absorption"`
}

// QueryConfig bounds a single search and the kernel around it.
type QueryConfig struct {
	Timeout   string `yaml:"timeout" validate:"omitempty,duration"`
	MaxNodes  int    `yaml:"max_nodes" validate:"gte=0"`
	CacheSize int64  `yaml:"cache_size" validate:"gte=0"`
	Workers   int    `yaml:"workers" validate:"gte=0"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Encoding    string `yaml:"encoding" validate:"oneof=json console"`
	Development bool   `yaml:"development"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("priorities", validatePriorities)
	_ = validate.RegisterValidation("absorption", validateAbsorption)
	_ = validate.RegisterValidation("duration", validateDuration)
}

func validatePriorities(fl validator.FieldLevel) bool {
	_, err := todo.ParsePriorities(fl.Field().String())
	return err == nil
}

func validateAbsorption(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if !strings.ContainsRune(AbsorptionLetters, r) {
			return false
		}
	}
	return true
}

func validateDuration(fl validator.FieldLevel) bool {
	_, err := time.ParseDuration(fl.Field().String())
	return err == nil
}

// DefaultConfig returns the defaults of the original option set.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Logic:             "auto",
			AnywhereBlocking:  true,
			LazyBlocking:      true,
			SemanticBranching: true,
			Backjumping:       true,
			Priorities:        todo.DefaultPriorities,
			Absorption:        DefaultAbsorption,
		},
		Query: QueryConfig{
			Timeout:   "0s",
			CacheSize: 10000,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file gives the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("TABLEAU_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TABLEAU_TIMEOUT"); v != "" {
		c.Query.Timeout = v
	}
	if v := os.Getenv("TABLEAU_MAX_NODES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TABLEAU_MAX_NODES: %w", err)
		}
		c.Query.MaxNodes = n
	}
	return nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GetTimeout returns the query timeout; zero means none.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Query.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// HasAbsorption reports whether an absorption letter is enabled.
func (c *Config) HasAbsorption(flag rune) bool {
	return strings.ContainsRune(c.Engine.Absorption, flag)
}

// EngineOptions converts the configuration into engine options. The
// configuration must be valid.
func (c *Config) EngineOptions() (tableau.Options, error) {
	logic, err := tableau.ParseLogic(c.Engine.Logic)
	if err != nil {
		return tableau.Options{}, err
	}
	prio, err := todo.ParsePriorities(c.Engine.Priorities)
	if err != nil {
		return tableau.Options{}, err
	}
	return tableau.Options{
		Logic:              logic,
		AnywhereBlocking:   c.Engine.AnywhereBlocking,
		LazyBlocking:       c.Engine.LazyBlocking,
		SemanticBranching:  c.Engine.SemanticBranching,
		Backjumping:        c.Engine.Backjumping,
		DynamicBackjumping: c.Engine.DynamicBackjumping,
		Priorities:         prio,
		Timeout:            c.GetTimeout(),
		MaxNodes:           c.Query.MaxNodes,
	}, nil
}
