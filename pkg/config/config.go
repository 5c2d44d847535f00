// Package config loads jitcc.yaml, the optional file cmd/jitcc reads to
// override the default IR pass pipeline order, the register allocator's
// color budget, and its spill-retry ceiling. None of this is required:
// every field has a working zero value and a missing file is not an error,
// matching the CLI's own tolerance for absent input: an unset flag falls
// back to printing help rather than failing.
package config

import (
	"fmt"
	"os"

	"github.com/jdryg/jitcc/pkg/ir/pass"
	"github.com/jdryg/jitcc/pkg/regalloc"
	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of jitcc.yaml.
type Config struct {
	// Passes overrides the default IR pass pipeline order (pkg/ir/pass's
	// Default()) by name. An empty list leaves the default chain in place.
	Passes []string `yaml:"passes"`

	// MaxIterations overrides the IR pipeline's fixed-point iteration
	// ceiling. Zero means "use pkg/ir/pass.DefaultMaxIterations".
	MaxIterations int `yaml:"max_iterations"`

	// K overrides the register allocator's color budget
	// (pkg/regalloc.NumAllocatableIntRegs by default). Zero means "use the
	// full integer file".
	K int `yaml:"k"`

	// SpillIterations overrides the allocate/rewrite/retry ceiling
	// (pkg/regalloc.MaxSpillIterations). Zero means "use the default".
	SpillIterations int `yaml:"spill_iterations"`
}

// Load reads and parses path. A missing file returns a zero-value Config
// and no error, so callers can always do cfg, err := config.Load(p); if
// err != nil { ... } without special-casing "doesn't exist".
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// Apply installs the register-allocator overrides onto pkg/regalloc's
// package-level knobs. It does not touch the IR pipeline; callers build
// that with Pipeline below, since unlike the allocator's knobs the pass
// chain is a value the caller holds and runs explicitly rather than global
// state every call site shares.
func (c *Config) Apply() {
	if c.K > 0 {
		regalloc.K = c.K
	}
	if c.SpillIterations > 0 {
		regalloc.MaxSpillIterations = c.SpillIterations
	}
}

// Pipeline builds the IR pass pipeline this config describes: the named
// chain in c.Passes if non-empty (in the given order, looked up against the
// same roster pass.Default assembles from), otherwise pass.Default().
func (c *Config) Pipeline() (*pass.Pipeline, error) {
	p := pass.Default()
	if c.MaxIterations > 0 {
		p.MaxIterations = c.MaxIterations
	}
	if len(c.Passes) == 0 {
		return p, nil
	}
	byName := make(map[string]pass.Pass, len(p.Passes))
	for _, ps := range p.Passes {
		byName[ps.Name] = ps
	}
	ordered := make([]pass.Pass, 0, len(c.Passes))
	for _, name := range c.Passes {
		ps, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("config: unknown pass %q", name)
		}
		ordered = append(ordered, ps)
	}
	p.Passes = ordered
	return p, nil
}
