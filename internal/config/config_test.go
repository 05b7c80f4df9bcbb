package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if len(cfg.Endpoints) == 0 {
		t.Fatal("defaults must provide endpoints")
	}
	if cfg.BroadcastDeadline != 30*time.Second {
		t.Fatalf("unexpected broadcast deadline: %v", cfg.BroadcastDeadline)
	}
	if cfg.SigningMode != "agent" {
		t.Fatalf("unexpected signing mode: %q", cfg.SigningMode)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plaza.yaml")
	body := `
ledger:
  endpoints:
    - https://node-a.example
    - https://node-b.example
  callTimeout: 5s
signing:
  mode: key
limits:
  submitBurst: 7
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadFromPath(path)
	if len(cfg.Endpoints) != 2 || cfg.Endpoints[0] != "https://node-a.example" {
		t.Fatalf("endpoints not merged: %v", cfg.Endpoints)
	}
	if cfg.CallTimeout != 5*time.Second {
		t.Fatalf("callTimeout not merged: %v", cfg.CallTimeout)
	}
	if cfg.SigningMode != "key" {
		t.Fatalf("signing mode not merged: %q", cfg.SigningMode)
	}
	if cfg.SubmitBurst != 7 {
		t.Fatalf("burst not merged: %d", cfg.SubmitBurst)
	}
	// Untouched fields keep their defaults.
	if cfg.BroadcastDeadline != 30*time.Second {
		t.Fatalf("default broadcast deadline lost: %v", cfg.BroadcastDeadline)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plaza.yaml")
	if err := os.WriteFile(path, []byte("signing:\n  mode: key\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PLAZA_SIGNING_MODE", "agent")
	t.Setenv("PLAZA_ENDPOINTS", " https://env-a.example , https://env-b.example ")
	t.Setenv("PLAZA_BROADCAST_DEADLINE", "12s")

	cfg := LoadFromPath(path)
	if cfg.SigningMode != "agent" {
		t.Fatalf("env override lost: %q", cfg.SigningMode)
	}
	if len(cfg.Endpoints) != 2 || cfg.Endpoints[1] != "https://env-b.example" {
		t.Fatalf("endpoint override lost: %v", cfg.Endpoints)
	}
	if cfg.BroadcastDeadline != 12*time.Second {
		t.Fatalf("deadline override lost: %v", cfg.BroadcastDeadline)
	}
}

func TestMalformedEnvValuesAreIgnored(t *testing.T) {
	t.Setenv("PLAZA_BROADCAST_DEADLINE", "soon")
	t.Setenv("PLAZA_SUBMIT_BURST", "many")

	cfg := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if cfg.BroadcastDeadline != 30*time.Second {
		t.Fatalf("malformed duration must not override: %v", cfg.BroadcastDeadline)
	}
	if cfg.SubmitBurst != 3 {
		t.Fatalf("malformed int must not override: %d", cfg.SubmitBurst)
	}
}
