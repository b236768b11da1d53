package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maidsafe/routing-model/routing"
)

func TestLoadSimConfigDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "config.toml")
	content := `
our_name = 900
our_age = 40
target_interval = 5000
run_for = "15s"
trace_db = "local/run.db"
trace_label = "overridden"

[timeouts]
work_unit = "50ms"
check_elder = "250ms"

[[member]]
name = 900
age = 40
elder = true

[[member]]
name = 901
age = 12
	`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadSimConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.OurAttributes.Name != routing.Name(900) || cfg.OurAttributes.Age != routing.Age(40) {
		t.Fatalf("unexpected our attributes: %+v", cfg.OurAttributes)
	}
	if cfg.TargetInterval != routing.Name(5000) {
		t.Fatalf("unexpected target interval: %d", cfg.TargetInterval)
	}
	if len(cfg.Members) != 2 {
		t.Fatalf("unexpected member count: %d", len(cfg.Members))
	}
	if !cfg.Members[0].Elder || cfg.Members[1].Elder {
		t.Fatalf("unexpected elder flags: %+v", cfg.Members)
	}
	if cfg.RunFor != 15*time.Second {
		t.Fatalf("unexpected run_for: %v", cfg.RunFor)
	}
	if cfg.TraceDB != "local/run.db" || cfg.TraceLabel != "overridden" {
		t.Fatalf("unexpected trace settings: %q %q", cfg.TraceDB, cfg.TraceLabel)
	}
	if cfg.Timeouts.WorkUnit != 50*time.Millisecond {
		t.Fatalf("unexpected work unit timeout: %v", cfg.Timeouts.WorkUnit)
	}
	if cfg.Timeouts.CheckElder != 250*time.Millisecond {
		t.Fatalf("unexpected check elder timeout: %v", cfg.Timeouts.CheckElder)
	}
	// Undefined keys keep their defaults.
	if cfg.Timeouts.CheckRelocate != 2*time.Second {
		t.Fatalf("unexpected check relocate timeout: %v", cfg.Timeouts.CheckRelocate)
	}
	if cfg.QueueSize != 1024 {
		t.Fatalf("unexpected queue size: %d", cfg.QueueSize)
	}
}

func TestLoadSimConfigRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("run_for = \"soon\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadSimConfig(path); err == nil {
		t.Fatal("expected an error for a bad duration")
	}
}

func TestBuildMemberStateUsesConfiguredSection(t *testing.T) {
	cfg := defaultSimConfig()
	state := buildMemberState(cfg)

	if got := state.Action.OurName(); got != cfg.OurAttributes.Name {
		t.Fatalf("unexpected our name: %d", got)
	}
	for _, member := range cfg.Members {
		info, found := state.Action.Member(member.Node.Name())
		if !found {
			t.Fatalf("member %d missing", member.Node.Name())
		}
		if info.IsElder != member.Elder {
			t.Fatalf("member %d elder flag: got %v want %v", member.Node.Name(), info.IsElder, member.Elder)
		}
	}
}
