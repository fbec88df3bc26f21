package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	// FileName is the config file inside the data directory.
	FileName = "config.json"

	// DefaultImageMaxBytes caps a single stored image.
	DefaultImageMaxBytes = 20 << 20

	// DefaultImageMaxPixels caps width*height of a stored image.
	DefaultImageMaxPixels = 50_000_000

	// DefaultMentionCacheSize is the number of mention detail results kept in memory.
	DefaultMentionCacheSize = 10

	// DefaultImageCleanupWorkers bounds concurrent file deletions.
	DefaultImageCleanupWorkers = 2
)

// Config holds application configuration.
type Config struct {
	// ImageMaxBytes is the largest image payload accepted by SaveImage.
	ImageMaxBytes int64 `json:"image_max_bytes"`

	// ImageMaxPixels is the largest width*height accepted by SaveImage.
	ImageMaxPixels int64 `json:"image_max_pixels"`

	// MentionCacheSize is the LRU capacity for mention detail lookups.
	MentionCacheSize int `json:"mention_cache_size"`

	// ImageCleanupWorkers bounds background deletion of released image files.
	ImageCleanupWorkers int `json:"image_cleanup_workers"`

	// AllowedPaths is an allowlist of directories for export/import bundles.
	// Paths outside ~/.daybook/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export/import.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes disables every tool of a type ("diary", "archive", "mention", "tag", "settings", "image", "data").
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ImageMaxBytes:       DefaultImageMaxBytes,
		ImageMaxPixels:      DefaultImageMaxPixels,
		MentionCacheSize:    DefaultMentionCacheSize,
		ImageCleanupWorkers: DefaultImageCleanupWorkers,
	}
}

// DefaultBaseDir returns the data directory: $DAYBOOK_HOME when set, else ~/.daybook.
func DefaultBaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("DAYBOOK_HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".daybook"), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, FileName))
}

// LoadWithOverride layers an explicit config file (e.g. from --config) over baseDir/config.json.
// An empty overridePath behaves like Load.
func LoadWithOverride(baseDir, overridePath string) (*Config, error) {
	base, err := Load(baseDir)
	if err != nil {
		return nil, err
	}
	if overridePath == "" {
		return base, nil
	}
	if _, err := os.Stat(overridePath); err != nil {
		return nil, err
	}
	overlay, err := loadFileRaw(overridePath)
	if err != nil {
		return nil, err
	}
	return Merge(base, overlay), nil
}

// loadFileRaw returns a zero-valued config (not defaults) if the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		ImageMaxBytes:       firstNonZero(overlay.ImageMaxBytes, base.ImageMaxBytes),
		ImageMaxPixels:      firstNonZero(overlay.ImageMaxPixels, base.ImageMaxPixels),
		MentionCacheSize:    firstNonZero(overlay.MentionCacheSize, base.MentionCacheSize),
		ImageCleanupWorkers: firstNonZero(overlay.ImageCleanupWorkers, base.ImageCleanupWorkers),
		DBMaxOpenConns:      firstNonZero(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:      firstNonZero(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstNonZero[T int | int64](values ...T) T {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
