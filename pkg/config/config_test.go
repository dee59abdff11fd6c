package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	for name, cfg := range map[string]*Config{
		"default":        NewDefaultConfig(),
		"high_security":  NewHighSecurityConfig(),
		"high_usability": NewHighUsabilityConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			if err := cfg.Validate(); err != nil {
				t.Errorf("preset %s should validate: %v", name, err)
			}
		})
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.MitigationThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.VectorSafeThreshold = -0.1 }},
		{"zero ratio", func(c *Config) { c.SimilarityRatio = 0 }},
		{"zero engine timeout", func(c *Config) { c.EngineTimeout = 0 }},
		{"empty tie break", func(c *Config) { c.TieBreakOrder = nil }},
		{"unknown tie break bucket", func(c *Config) { c.TieBreakOrder = []string{"harmless"} }},
		{"negative engine weight", func(c *Config) { c.EngineWeights = map[string]float64{"x": -1} }},
		{"short bound below min length", func(c *Config) { c.MinTextLength = 30; c.ShortTextBound = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("GUARDIAN_TEST_STR", "value")
	t.Setenv("GUARDIAN_TEST_INT", "42")
	t.Setenv("GUARDIAN_TEST_FLOAT", "0.5")
	t.Setenv("GUARDIAN_TEST_BOOL", "true")
	t.Setenv("GUARDIAN_TEST_SLICE", "a, b ,c")

	if got := GetEnv("GUARDIAN_TEST_STR", "d"); got != "value" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("GUARDIAN_TEST_MISSING", "d"); got != "d" {
		t.Errorf("GetEnv default = %q", got)
	}
	if got := GetEnvInt("GUARDIAN_TEST_INT", 0); got != 42 {
		t.Errorf("GetEnvInt = %d", got)
	}
	if got := GetEnvFloat("GUARDIAN_TEST_FLOAT", 0); got != 0.5 {
		t.Errorf("GetEnvFloat = %v", got)
	}
	if got := GetEnvBool("GUARDIAN_TEST_BOOL", false); !got {
		t.Error("GetEnvBool = false")
	}
	got := GetEnvSlice("GUARDIAN_TEST_SLICE", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("GetEnvSlice = %v", got)
	}
}

func TestLoadListsExtend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lists.yaml")
	body := `
mode: extend
lists:
  safe:
    - "how to fold origami"
  high_risk:
    HACKING:
      - "how to bypass a paywall"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	lists, err := LoadLists(path)
	if err != nil {
		t.Fatalf("LoadLists: %v", err)
	}

	found := false
	for _, s := range lists.Safe {
		if s == "how to fold origami" {
			found = true
		}
	}
	if !found {
		t.Error("extended safe phrase missing")
	}
	if len(lists.HighRisk) == 0 {
		t.Fatal("high risk lists missing after merge")
	}
	// Defaults must survive an extend.
	if len(lists.Safe) < 2 {
		t.Error("built-in safe list was dropped by extend mode")
	}
}

func TestLoadListsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lists.yaml")
	if err := os.WriteFile(path, []byte("mode: sideways\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLists(path); err == nil {
		t.Error("expected error for unknown mode")
	}
}
