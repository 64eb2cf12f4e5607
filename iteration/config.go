package iteration

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailored-agentic-units/orchestrator/adapter"
	"github.com/tailored-agentic-units/orchestrator/hooks"
	"github.com/tailored-agentic-units/orchestrator/notify"
)

const defaultMaxIterations = 10

// Config holds everything the Iteration Engine needs to run one task,
// composing each subsystem's own Config section.
type Config struct {
	Model         string   `json:"model"`
	MaxIterations int      `json:"max_iterations"`
	BudgetUSD     *float64 `json:"budget_usd,omitempty"`
	WorkingDir    string   `json:"working_dir,omitempty"`

	Adapter adapter.Config `json:"adapter"`
	Hooks   hooks.Config   `json:"hooks"`
	Notify  notify.Config  `json:"notify"`

	// CompletionMarker is the literal substring signalling completion.
	// Ignored if CompletionMarkers or CompletionRegex is set.
	CompletionMarker string `json:"completion_marker,omitempty"`
	// CompletionMarkers, if non-empty, switches to an any-of match.
	CompletionMarkers []string `json:"completion_markers,omitempty"`
	// CompletionRegex, if set, switches to a regular-expression match and
	// takes precedence over both marker fields.
	CompletionRegex           string `json:"completion_regex,omitempty"`
	CaseInsensitiveCompletion bool   `json:"case_insensitive_completion,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults for every
// subsystem.
func DefaultConfig() Config {
	return Config{
		MaxIterations:    defaultMaxIterations,
		Adapter:          adapter.DefaultConfig(),
		Hooks:            hooks.DefaultConfig(),
		Notify:           notify.DefaultConfig(),
		CompletionMarker: DefaultCompletionMarker,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's own Merge method.
func (c *Config) Merge(source *Config) {
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.MaxIterations > 0 {
		c.MaxIterations = source.MaxIterations
	}
	if source.BudgetUSD != nil {
		c.BudgetUSD = source.BudgetUSD
	}
	if source.WorkingDir != "" {
		c.WorkingDir = source.WorkingDir
	}

	c.Adapter.Merge(&source.Adapter)
	c.Hooks.Merge(&source.Hooks)
	c.Notify.Merge(&source.Notify)

	if source.CompletionMarker != "" {
		c.CompletionMarker = source.CompletionMarker
	}
	if len(source.CompletionMarkers) > 0 {
		c.CompletionMarkers = source.CompletionMarkers
	}
	if source.CompletionRegex != "" {
		c.CompletionRegex = source.CompletionRegex
	}
	if source.CaseInsensitiveCompletion {
		c.CaseInsensitiveCompletion = true
	}
}

// LoadConfig reads a JSON config file, merges it with DefaultConfig, and
// returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("iteration: read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("iteration: parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// resolveStrategy builds the CompletionStrategy named by cfg's completion
// fields, in precedence order: regex, any-of, single marker.
func resolveStrategy(cfg Config) (CompletionStrategy, error) {
	if cfg.CompletionRegex != "" {
		strategy, err := NewRegexStrategy(cfg.CompletionRegex, cfg.CaseInsensitiveCompletion)
		if err != nil {
			return nil, fmt.Errorf("iteration: compile completion regex: %w", err)
		}
		return strategy, nil
	}
	if len(cfg.CompletionMarkers) > 0 {
		return AnyOfStrategy{Markers: cfg.CompletionMarkers, CaseInsensitive: cfg.CaseInsensitiveCompletion}, nil
	}
	return PromiseStrategy{Marker: cfg.CompletionMarker, CaseInsensitive: cfg.CaseInsensitiveCompletion}, nil
}
