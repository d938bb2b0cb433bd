package config_test

import (
	"testing"

	"github.com/quilldsl/quill/internal/config"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.TimeoutSeconds != 30 {
		t.Errorf("HTTP.TimeoutSeconds = %d, want 30", cfg.HTTP.TimeoutSeconds)
	}
	if cfg.RPC.TimeoutSeconds != 10 {
		t.Errorf("RPC.TimeoutSeconds = %d, want 10", cfg.RPC.TimeoutSeconds)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	src := "http:\n  timeoutSeconds: 5\nrpc:\n  protoImportPaths: [\"./proto\"]\nlog:\n  level: debug\n"
	cfg, err := config.Parse([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.TimeoutSeconds != 5 {
		t.Errorf("HTTP.TimeoutSeconds = %d, want 5", cfg.HTTP.TimeoutSeconds)
	}
	if len(cfg.RPC.ProtoImportPaths) != 1 || cfg.RPC.ProtoImportPaths[0] != "./proto" {
		t.Errorf("RPC.ProtoImportPaths = %v, want [./proto]", cfg.RPC.ProtoImportPaths)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestParseRejectsUnknownLogLevel(t *testing.T) {
	_, err := config.Parse([]byte("log:\n  level: verbose\n"))
	if err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestFindReturnsEmptyWhenNoConfigAbove(t *testing.T) {
	dir := t.TempDir()
	path, err := config.Find(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty (no quill.yaml anywhere above a temp dir)", path)
	}
}
