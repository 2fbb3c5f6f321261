package config

import (
	"fmt"
	"os"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Trigger event names accepted in completion.autocomplete.
const (
	TriggerTextChanged = "text_changed"
	TriggerInsertEnter = "insert_enter"
)

// Config is the engine configuration.
type Config struct {
	Completion CompletionConfig `toml:"completion"`
	Confirm    ConfirmConfig    `toml:"confirm"`
	Sources    []SourceConfig   `toml:"source"`
	Keymap     KeymapConfig     `toml:"keymap"`
}

// CompletionConfig controls when automatic completion fires.
type CompletionConfig struct {
	// Autocomplete lists the trigger events that start an automatic
	// completion cycle.
	Autocomplete []string `toml:"autocomplete"`

	// KeywordLength is the minimum prefix length before automatic
	// completion fires. Manual invocation ignores it.
	KeywordLength int `toml:"keyword_length"`
}

// ConfirmConfig controls candidate confirmation.
type ConfirmConfig struct {
	// DefaultBehavior is "insert" or "replace".
	DefaultBehavior string `toml:"default_behavior"`

	// CommitCharacters enables confirmation via provider-declared
	// commit characters.
	CommitCharacters bool `toml:"commit_characters"`
}

// SourceConfig orders one provider name. Higher priority publishes
// first.
type SourceConfig struct {
	Name     string `toml:"name"`
	Priority int    `toml:"priority"`
}

// KeymapConfig points at the YAML keymap file and allows inline
// bindings.
type KeymapConfig struct {
	File     string            `toml:"file"`
	Bindings map[string]string `toml:"bindings"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Completion: CompletionConfig{
			Autocomplete:  []string{TriggerTextChanged},
			KeywordLength: 1,
		},
		Confirm: ConfirmConfig{
			DefaultBehavior:  "insert",
			CommitCharacters: true,
		},
	}
}

// Load reads TOML configuration from path. A missing file yields the
// defaults, not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML configuration, filling unset fields from the
// defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &ParseError{Message: err.Error(), Err: err}
	}
	if len(cfg.Completion.Autocomplete) == 0 {
		cfg.Completion.Autocomplete = []string{TriggerTextChanged}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Confirm.DefaultBehavior {
	case "insert", "replace":
	default:
		return fmt.Errorf("confirm.default_behavior %q: want insert or replace", c.Confirm.DefaultBehavior)
	}
	if c.Completion.KeywordLength < 0 {
		return fmt.Errorf("completion.keyword_length %d: must be >= 0", c.Completion.KeywordLength)
	}
	for i, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: empty name", i)
		}
	}
	return nil
}

// PriorityOrder returns source names by descending priority, stable in
// declaration order for equal priorities.
func (c *Config) PriorityOrder() []string {
	sources := make([]SourceConfig, len(c.Sources))
	copy(sources, c.Sources)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority > sources[j].Priority
	})
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	return names
}

// AutoTrigger reports whether the named event starts an automatic
// completion cycle.
func (c *Config) AutoTrigger(event string) bool {
	for _, e := range c.Completion.Autocomplete {
		if e == event {
			return true
		}
	}
	return false
}

// keymapFile is the YAML shape of a keymap file.
type keymapFile struct {
	Bindings []struct {
		Keys   string `yaml:"keys"`
		Action string `yaml:"action"`
	} `yaml:"bindings"`
}

// LoadKeymap reads the YAML keymap file plus inline bindings and
// returns keys-to-action pairs. Inline bindings win on conflict.
func (c *Config) LoadKeymap() (map[string]string, error) {
	out := make(map[string]string)

	if c.Keymap.File != "" {
		data, err := os.ReadFile(c.Keymap.File)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading keymap file %s: %w", c.Keymap.File, err)
			}
		} else {
			var kf keymapFile
			if err := yaml.Unmarshal(data, &kf); err != nil {
				return nil, &ParseError{Path: c.Keymap.File, Message: err.Error(), Err: err}
			}
			for _, b := range kf.Bindings {
				out[b.Keys] = b.Action
			}
		}
	}

	for keys, action := range c.Keymap.Bindings {
		out[keys] = action
	}
	return out, nil
}

// ParseError reports a malformed configuration file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parsing %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parsing config: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
