package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jdryg/jitcc/pkg/regalloc"
)

func TestLoadMissingFileReturnsZeroConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("a missing config file should not be an error, got %v", err)
	}
	if cfg.K != 0 || cfg.SpillIterations != 0 || len(cfg.Passes) != 0 {
		t.Errorf("expected a zero-value Config, got %+v", cfg)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jitcc.yaml")
	body := "k: 8\nspill_iterations: 4\npasses:\n  - constant-folding\n  - dead-code-elimination\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.K != 8 {
		t.Errorf("expected k=8, got %d", cfg.K)
	}
	if cfg.SpillIterations != 4 {
		t.Errorf("expected spill_iterations=4, got %d", cfg.SpillIterations)
	}
	if len(cfg.Passes) != 2 || cfg.Passes[0] != "constant-folding" || cfg.Passes[1] != "dead-code-elimination" {
		t.Errorf("unexpected passes: %v", cfg.Passes)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jitcc.yaml")
	if err := os.WriteFile(path, []byte("k: [this is not an int\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed yaml")
	}
}

func TestApplyOverridesRegallocGlobals(t *testing.T) {
	origK, origSpill := regalloc.K, regalloc.MaxSpillIterations
	defer func() { regalloc.K, regalloc.MaxSpillIterations = origK, origSpill }()

	cfg := &Config{K: 5, SpillIterations: 2}
	cfg.Apply()

	if regalloc.K != 5 {
		t.Errorf("expected regalloc.K overridden to 5, got %d", regalloc.K)
	}
	if regalloc.MaxSpillIterations != 2 {
		t.Errorf("expected regalloc.MaxSpillIterations overridden to 2, got %d", regalloc.MaxSpillIterations)
	}
}

func TestApplyLeavesGlobalsUntouchedWhenZero(t *testing.T) {
	origK, origSpill := regalloc.K, regalloc.MaxSpillIterations
	defer func() { regalloc.K, regalloc.MaxSpillIterations = origK, origSpill }()

	(&Config{}).Apply()

	if regalloc.K != origK {
		t.Errorf("a zero K should not override regalloc.K, got %d want %d", regalloc.K, origK)
	}
	if regalloc.MaxSpillIterations != origSpill {
		t.Errorf("a zero SpillIterations should not override regalloc.MaxSpillIterations, got %d want %d", regalloc.MaxSpillIterations, origSpill)
	}
}

func TestPipelineDefaultWhenPassesEmpty(t *testing.T) {
	p, err := (&Config{}).Pipeline()
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	if len(p.Passes) == 0 {
		t.Fatal("expected the default pass roster when Passes is empty")
	}
}

func TestPipelineOrdersNamedPasses(t *testing.T) {
	cfg := &Config{Passes: []string{"dead-code-elimination", "constant-folding"}}
	p, err := cfg.Pipeline()
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	if len(p.Passes) != 2 {
		t.Fatalf("expected exactly the 2 named passes, got %d", len(p.Passes))
	}
	if p.Passes[0].Name != "dead-code-elimination" || p.Passes[1].Name != "constant-folding" {
		t.Errorf("expected the named order to be preserved, got %q then %q", p.Passes[0].Name, p.Passes[1].Name)
	}
}

func TestPipelineErrorsOnUnknownPassName(t *testing.T) {
	cfg := &Config{Passes: []string{"not-a-real-pass"}}
	if _, err := cfg.Pipeline(); err == nil {
		t.Fatal("expected an error for an unknown pass name")
	}
}

func TestPipelineRespectsMaxIterationsOverride(t *testing.T) {
	cfg := &Config{MaxIterations: 3}
	p, err := cfg.Pipeline()
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	if p.MaxIterations != 3 {
		t.Errorf("expected MaxIterations overridden to 3, got %d", p.MaxIterations)
	}
}
