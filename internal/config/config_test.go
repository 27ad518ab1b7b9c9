package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 4533 {
		t.Errorf("Expected default port 4533, got %d", cfg.Server.Port)
	}
	if cfg.Player.DefaultVolume != 0.8 {
		t.Errorf("Expected default volume 0.8, got %v", cfg.Player.DefaultVolume)
	}
	if cfg.Database.Path == "" {
		t.Error("Expected a default database path")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[server]
host = "0.0.0.0"
port = 9000

[drive]
folder_id = "abc123"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:9000" {
		t.Errorf("Expected 0.0.0.0:9000, got %s", cfg.Server.Addr())
	}
	if cfg.Drive.FolderID != "abc123" {
		t.Errorf("Expected folder abc123, got %s", cfg.Drive.FolderID)
	}

	// Values not present in the file keep their defaults
	if cfg.Player.DefaultVolume != 0.8 {
		t.Errorf("Expected default volume to survive partial config, got %v", cfg.Player.DefaultVolume)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := CreateFile(path); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	if err := CreateFile(path); err == nil {
		t.Error("Expected error when creating over an existing config")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of created file failed: %v", err)
	}
	if cfg.Server.Port != Default().Server.Port {
		t.Error("Created config does not match defaults")
	}
}
