package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BookID != "physbook" {
		t.Errorf("book_id = %q", cfg.BookID)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.ContentDir != "content" || cfg.SourceDir != "chapters" {
		t.Errorf("dirs = %q %q", cfg.ContentDir, cfg.SourceDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".physbook.yml")

	original := DefaultConfig()
	original.BookID = "mechanics"
	original.Port = 9999
	original.Include = []string{"**/*.md", "**/*.markdown"}
	original.LockMillis = 1200

	if err := original.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.BookID != "mechanics" {
		t.Errorf("book_id = %q", loaded.BookID)
	}
	if loaded.Port != 9999 {
		t.Errorf("port = %d", loaded.Port)
	}
	if loaded.LockMillis != 1200 {
		t.Errorf("lock_ms = %d", loaded.LockMillis)
	}
	if len(loaded.Include) != 2 {
		t.Errorf("include = %v", loaded.Include)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Port != 8080 {
		t.Errorf("port = %d, want default", loaded.Port)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PHYSBOOK_PORT", "3000")
	t.Setenv("PHYSBOOK_BOOK_ID", "env-book")

	loaded, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Port != 3000 {
		t.Errorf("port = %d, want env override 3000", loaded.Port)
	}
	if loaded.BookID != "env-book" {
		t.Errorf("book_id = %q, want env override", loaded.BookID)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing book id", func(c *Config) { c.BookID = "" }, true},
		{"missing manifest", func(c *Config) { c.Manifest = "" }, true},
		{"missing content dir", func(c *Config) { c.ContentDir = "" }, true},
		{"bad port", func(c *Config) { c.Port = -1 }, true},
		{"huge port", func(c *Config) { c.Port = 70000 }, true},
		{"negative lock", func(c *Config) { c.LockMillis = -5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Interactive Physics", "interactive-physics"},
		{"  Waves & Optics!  ", "waves-optics"},
		{"already-slugged", "already-slugged"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
