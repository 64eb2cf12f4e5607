package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultStepMaxIterations = 50

// Global holds workflow-wide defaults applied where a step omits its own
// value.
type Global struct {
	DefaultModel       string   `yaml:"default_model,omitempty"`
	MaxParallelWorkers int      `yaml:"max_parallel_workers,omitempty"`
	BudgetUSD          *float64 `yaml:"budget_usd,omitempty"`
	CompletionPromise  string   `yaml:"completion_promise,omitempty"`
}

// Step is one node of the dependency graph.
type Step struct {
	Name          string   `yaml:"name"`
	Prompt        string   `yaml:"prompt,omitempty"`
	Spec          string   `yaml:"spec,omitempty"`
	Model         string   `yaml:"model,omitempty"`
	ParallelGroup int      `yaml:"parallel_group"`
	DependsOn     []string `yaml:"depends_on,omitempty"`
	MaxIterations int      `yaml:"max_iterations,omitempty"`
	BudgetUSD     *float64 `yaml:"budget_usd,omitempty"`
}

// Definition is a parsed workflow file.
type Definition struct {
	Name   string `yaml:"name"`
	Global Global `yaml:"global,omitempty"`
	Steps  []Step `yaml:"steps"`
}

// Load parses a workflow YAML file, applying the global default model and
// the per-step default iteration cap.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: read %s: %w", path, err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("workflow: parse %s: %w", path, err)
	}

	for i := range def.Steps {
		s := &def.Steps[i]
		if s.Model == "" {
			s.Model = def.Global.DefaultModel
		}
		if s.MaxIterations == 0 {
			s.MaxIterations = defaultStepMaxIterations
		}
		if s.BudgetUSD == nil {
			s.BudgetUSD = def.Global.BudgetUSD
		}
	}

	return &def, nil
}
