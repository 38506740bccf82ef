package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Swind/go-thread-runner/core"
	"github.com/rs/zerolog"
)

func TestDecode_OverridesDefaults(t *testing.T) {
	cfg, err := Decode(`
name = "audio"
lock_os_thread = false
history_capacity = 16
log_level = "debug"
log_format = "json"
`)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if cfg.Name != "audio" {
		t.Errorf("Name = %q, want audio", cfg.Name)
	}
	if cfg.LockOSThread {
		t.Error("LockOSThread = true, want false")
	}
	if cfg.HistoryCapacity != 16 {
		t.Errorf("HistoryCapacity = %d, want 16", cfg.HistoryCapacity)
	}
	if cfg.LogLevel != zerolog.DebugLevel {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if !cfg.LogJSON {
		t.Error("LogJSON = false, want true")
	}
	if !cfg.LogTimestamp {
		t.Error("LogTimestamp = false, want default true")
	}
}

func TestDecode_Empty(t *testing.T) {
	cfg, err := Decode("")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Decode(\"\") = %+v, want %+v", cfg, Default())
	}
	if !cfg.LockOSThread {
		t.Error("default LockOSThread = false, want true")
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown key":      `colour = "blue"`,
		"bad level":        `log_level = "loud"`,
		"bad format":       `log_format = "xml"`,
		"negative history": `history_capacity = -1`,
		"bad toml":         `name = `,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(data); err == nil {
				t.Errorf("Decode(%q) succeeded, want error", data)
			}
		})
	}

	_, err := Decode(`history_capacity = -1`)
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("negative history err = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thread.toml")
	if err := os.WriteFile(path, []byte("name = \"from-file\"\nlog_level = \"warn\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "from-file" || cfg.LogLevel != zerolog.WarnLevel {
		t.Errorf("Load = %+v, want name from-file at warn", cfg)
	}

	t.Setenv(EnvName, "from-env")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")

	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "from-env" {
		t.Errorf("Name = %q, want from-env", cfg.Name)
	}
	if cfg.LogLevel != zerolog.ErrorLevel {
		t.Errorf("LogLevel = %v, want error", cfg.LogLevel)
	}
	if cfg.LogTimestamp {
		t.Error("LogTimestamp = true, want false")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load of a missing file succeeded")
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Name != core.DefaultThreadConfig().Name {
		t.Errorf("Name = %q, want default", cfg.Name)
	}
}

// TestConfig_ThreadConfig verifies the resolved config spawns a working thread
func TestConfig_ThreadConfig(t *testing.T) {
	cfg, err := Decode("name = \"configured\"\nlog_format = \"json\"\nlog_level = \"warn\"\n")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	var buf bytes.Buffer
	th, err := core.SpawnWithConfig(cfg.ThreadConfig(&buf))
	if err != nil {
		t.Fatalf("SpawnWithConfig failed: %v", err)
	}
	if th.Name() != "configured" {
		t.Errorf("Name() = %q, want configured", th.Name())
	}
	if err := th.Join(); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	_ = th.Run(func(ctx context.Context) error { return nil })
	if out := buf.String(); !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "task rejected") {
		t.Errorf("log output = %q, want a JSON warn line", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		" DEBUG ": zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range tests {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Errorf("parseLevel(%q) = (%v, %v), want (%v, true)", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel(""); ok {
		t.Error("parseLevel(\"\") ok = true, want false")
	}
}
