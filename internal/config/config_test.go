package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	c := FromEnv()

	if c.App.Env != "dev" {
		t.Errorf("App.Env = %q, expected dev", c.App.Env)
	}
	if c.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, expected :8080", c.Server.Addr)
	}
	if c.Storage.Driver != "memory" {
		t.Errorf("Storage.Driver = %q, expected memory", c.Storage.Driver)
	}
	if c.Accounting.Mode != "async" {
		t.Errorf("Accounting.Mode = %q, expected async", c.Accounting.Mode)
	}
	if c.Runner.MaxRunDuration != "8m" || c.Runner.StaleAfter != "9m" {
		t.Errorf("runner defaults = (%q, %q), expected (8m, 9m)",
			c.Runner.MaxRunDuration, c.Runner.StaleAfter)
	}
}

func TestLoad_YAMLThenEnvOverride(t *testing.T) {
	yml := `
server:
  addr: ":9999"
storage:
  driver: postgres
  dsn: "postgres://yaml"
accounting:
  mode: sync
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("STORAGE_DSN", "postgres://env")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Server.Addr != ":9999" {
		t.Errorf("Server.Addr = %q, expected :9999", c.Server.Addr)
	}
	if c.Storage.Driver != "postgres" {
		t.Errorf("Storage.Driver = %q, expected postgres", c.Storage.Driver)
	}
	// env pisa YAML
	if c.Storage.DSN != "postgres://env" {
		t.Errorf("Storage.DSN = %q, expected env override", c.Storage.DSN)
	}
	if c.Accounting.Mode != "sync" {
		t.Errorf("Accounting.Mode = %q, expected sync", c.Accounting.Mode)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDur(t *testing.T) {
	if d := Dur("90s", time.Minute); d != 90*time.Second {
		t.Errorf("Dur(90s) = %v", d)
	}
	if d := Dur("", time.Minute); d != time.Minute {
		t.Errorf("Dur(empty) = %v, expected fallback", d)
	}
	if d := Dur("garbage", time.Minute); d != time.Minute {
		t.Errorf("Dur(garbage) = %v, expected fallback", d)
	}
	if d := Dur("-5s", time.Minute); d != time.Minute {
		t.Errorf("Dur(-5s) = %v, expected fallback on non-positive", d)
	}
}
