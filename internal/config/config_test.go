package config

import (
	"testing"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}

	if cfg.General.DefaultLimit != 100 {
		t.Errorf("default limit = %d", cfg.General.DefaultLimit)
	}
	if cfg.General.AccountID != "default" {
		t.Errorf("account id = %q", cfg.General.AccountID)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTLSeconds != 120 {
		t.Errorf("cache config = %+v", cfg.Cache)
	}
	if cfg.API.TimeoutSeconds != 30 {
		t.Errorf("api config = %+v", cfg.API)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()

	cfg := GetDefaults()
	cfg.General.DefaultDatabase = "Tasks"
	cfg.Databases = map[string]string{"tasks": "a1b2c3"}
	cfg.Cache.Enabled = false

	if err := Save(cfg, dir); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	reloaded, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if reloaded.General.DefaultDatabase != "Tasks" {
		t.Errorf("default database = %q", reloaded.General.DefaultDatabase)
	}
	if reloaded.Cache.Enabled {
		t.Error("cache should stay disabled")
	}
	if reloaded.Databases["tasks"] != "a1b2c3" {
		t.Errorf("databases = %v", reloaded.Databases)
	}
}

func TestResolveDatabase(t *testing.T) {
	cfg := GetDefaults()
	cfg.Databases = map[string]string{"tasks": "id-123"}

	if got := cfg.ResolveDatabase("tasks"); got != "id-123" {
		t.Errorf("ResolveDatabase(tasks) = %q", got)
	}
	// Unknown names pass through so titles and raw IDs keep working.
	if got := cfg.ResolveDatabase("Projects"); got != "Projects" {
		t.Errorf("ResolveDatabase(Projects) = %q", got)
	}
}

func TestEnvTokenOverride(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "env-token")
	if got := EnvToken(); got != "env-token" {
		t.Errorf("EnvToken() = %q", got)
	}
}
