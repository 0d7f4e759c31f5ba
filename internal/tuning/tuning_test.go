package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.yaml")
	body := []byte("number_of_ticks: 42\ntime_per_tick_ms: 250\nrules:\n  warm_up_ticks: 5\n  maximum_summon_level: 7\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.NumberOfTicks != 42 {
		t.Fatalf("NumberOfTicks = %d", got.NumberOfTicks)
	}
	if got.TimePerTick() != 250*time.Millisecond {
		t.Fatalf("TimePerTick = %v", got.TimePerTick())
	}
	if got.Rules.WarmUpTicks != 5 || got.Rules.MaximumSummonLevel != 7 {
		t.Fatalf("rules = %+v", got.Rules)
	}
	// Untouched fields keep their defaults.
	if got.ExpectedTeams != 3 || got.MaxWaitBeforeStart() != 3*time.Minute {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatalf("missing file must surface the error")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v", err)
	}
	if got.NumberOfTicks != Default().NumberOfTicks {
		t.Fatalf("defaults expected, got %+v", got)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.yaml")
	if err := os.WriteFile(path, []byte("number_of_ticks: [oops"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml must fail")
	}
}

func TestDurationAccessors(t *testing.T) {
	d := Default()
	if d.TimePerTick() != time.Second || d.Rules.WarmStartDelay() != time.Second {
		t.Fatalf("defaults: tick=%v warm=%v", d.TimePerTick(), d.Rules.WarmStartDelay())
	}
	if d.DelayBetweenTicks() != 0 {
		t.Fatalf("delay = %v", d.DelayBetweenTicks())
	}
}
