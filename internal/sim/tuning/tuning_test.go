package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.ProtocolVersion != "1.0" || d.TickDurationMs != 250 {
		t.Fatalf("defaults: %+v", d)
	}
	if d.Liquid.MaxBudget != 512 || d.Liquid.MinBudget != 32 {
		t.Fatalf("liquid defaults: %+v", d.Liquid)
	}
	if !d.Liquid.DissipateAtFallCap {
		t.Fatalf("dissipation should default on")
	}
}

func TestLoad_OverridesAndMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := `
protocol_version: "1.0"
tick_duration_ms: 50
world:
  height: 32
liquid:
  max_budget: 128
  dissipate_at_fall_cap: false
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TickDurationMs != 50 || got.World.Height != 32 || got.Liquid.MaxBudget != 128 {
		t.Fatalf("overrides lost: %+v", got)
	}
	if got.Liquid.DissipateAtFallCap {
		t.Fatalf("explicit false was not honored")
	}
	// Unset fields stay zero; the engine applies its own fallbacks.
	if got.Liquid.MinBudget != 0 {
		t.Fatalf("unset field not zero: %d", got.Liquid.MinBudget)
	}
}

func TestLoad_Shipped(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	if got.ProtocolVersion != "1.0" {
		t.Fatalf("protocol_version = %q", got.ProtocolVersion)
	}
	if got.Liquid.QueueCapacity <= 0 || got.Liquid.SettleTicks <= 0 {
		t.Fatalf("shipped liquid block incomplete: %+v", got.Liquid)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("missing file: %v", err)
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("liquid: [not a map"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}
