package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ImageMaxBytes != DefaultImageMaxBytes {
		t.Fatalf("ImageMaxBytes = %d, want %d", cfg.ImageMaxBytes, DefaultImageMaxBytes)
	}
	if cfg.ImageMaxPixels != DefaultImageMaxPixels {
		t.Fatalf("ImageMaxPixels = %d, want %d", cfg.ImageMaxPixels, DefaultImageMaxPixels)
	}
	if cfg.MentionCacheSize != DefaultMentionCacheSize {
		t.Fatalf("MentionCacheSize = %d, want %d", cfg.MentionCacheSize, DefaultMentionCacheSize)
	}
	if cfg.ImageCleanupWorkers != DefaultImageCleanupWorkers {
		t.Fatalf("ImageCleanupWorkers = %d, want %d", cfg.ImageCleanupWorkers, DefaultImageCleanupWorkers)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"image_max_bytes": 500, "mention_cache_size": 3}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ImageMaxBytes != 500 {
		t.Fatalf("ImageMaxBytes = %d, want %d", cfg.ImageMaxBytes, 500)
	}
	if cfg.MentionCacheSize != 3 {
		t.Fatalf("MentionCacheSize = %d, want %d", cfg.MentionCacheSize, 3)
	}
	if cfg.ImageCleanupWorkers != DefaultImageCleanupWorkers {
		t.Fatalf("ImageCleanupWorkers = %d, want default", cfg.ImageCleanupWorkers)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["data_import", "diary_delete"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "data_import" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "data_import")
	}
}

func TestLoadWithOverride(t *testing.T) {
	baseDir := t.TempDir()
	overrideDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(baseDir, "config.json"), []byte(`{"mention_cache_size": 4, "allowed_paths": ["/a"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	overridePath := filepath.Join(overrideDir, "custom.json")
	if err := os.WriteFile(overridePath, []byte(`{"mention_cache_size": 8, "allowed_paths": ["/b", "/a"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithOverride(baseDir, overridePath)
	if err != nil {
		t.Fatalf("LoadWithOverride() error = %v", err)
	}
	if cfg.MentionCacheSize != 8 {
		t.Errorf("MentionCacheSize = %d, want 8", cfg.MentionCacheSize)
	}
	if len(cfg.AllowedPaths) != 2 {
		t.Errorf("AllowedPaths = %v, want 2 entries", cfg.AllowedPaths)
	}
}

func TestLoadWithOverride_MissingFile(t *testing.T) {
	if _, err := LoadWithOverride(t.TempDir(), "/nonexistent/custom.json"); err == nil {
		t.Fatal("LoadWithOverride() expected error for missing override file")
	}
}

func TestLoadWithOverride_Empty(t *testing.T) {
	cfg, err := LoadWithOverride(t.TempDir(), "")
	if err != nil {
		t.Fatalf("LoadWithOverride() error = %v", err)
	}
	if cfg.ImageMaxBytes != DefaultImageMaxBytes {
		t.Errorf("ImageMaxBytes = %d, want default", cfg.ImageMaxBytes)
	}
}

func TestDefaultBaseDir_EnvOverride(t *testing.T) {
	t.Setenv("DAYBOOK_HOME", "/tmp/daybook-home")

	dir, err := DefaultBaseDir()
	if err != nil {
		t.Fatalf("DefaultBaseDir() error = %v", err)
	}
	if dir != "/tmp/daybook-home" {
		t.Errorf("DefaultBaseDir() = %q, want %q", dir, "/tmp/daybook-home")
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{ImageMaxBytes: 100, DBMaxOpenConns: 1}
	overlay := &Config{ImageMaxBytes: 200}

	result := Merge(base, overlay)
	if result.ImageMaxBytes != 200 {
		t.Errorf("ImageMaxBytes = %d, want 200", result.ImageMaxBytes)
	}
	if result.DBMaxOpenConns != 1 {
		t.Errorf("DBMaxOpenConns = %d, want 1", result.DBMaxOpenConns)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	result := Merge(&Config{AllowUnsafePaths: true}, &Config{})
	if !result.AllowUnsafePaths {
		t.Error("AllowUnsafePaths = false, want true")
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTypes: []string{"data", " mention "}}
	overlay := &Config{DisabledTypes: []string{"mention", "", "tag"}}

	result := Merge(base, overlay)
	want := []string{"data", "mention", "tag"}
	if len(result.DisabledTypes) != len(want) {
		t.Fatalf("DisabledTypes = %v, want %v", result.DisabledTypes, want)
	}
	for i := range want {
		if result.DisabledTypes[i] != want[i] {
			t.Errorf("DisabledTypes[%d] = %q, want %q", i, result.DisabledTypes[i], want[i])
		}
	}
}

func TestMerge_EmptyArraysNil(t *testing.T) {
	if result := Merge(&Config{}, &Config{}); result.AllowedPaths != nil {
		t.Errorf("AllowedPaths = %v, want nil", result.AllowedPaths)
	}
}
