package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// AutosaveDebounceMs is the quiet period after a content change before the
	// document is serialized and forwarded to the host. A mutation command
	// bypasses this and forces an immediate save.
	AutosaveDebounceMs int `json:"autosave_debounce_ms"`

	// SaveSuppressionMs is the window after a self-initiated write during which
	// file-change events on the backing document are ignored as self-caused.
	SaveSuppressionMs int `json:"save_suppression_ms"`

	// DefaultAuthorName is the attribution identity used for tracked changes
	// and comments when a command supplies no author.
	DefaultAuthorName string `json:"default_author_name"`

	// DefaultAuthorEmail accompanies DefaultAuthorName in tracked-change attribution.
	DefaultAuthorEmail string `json:"default_author_email"`

	// MaxImageBytes caps the size of a fetched or read image source.
	MaxImageBytes int64 `json:"max_image_bytes"`

	// AllowedImagePaths is an allowlist of directories for local image sources.
	// The document's own directory is always allowed. Paths should be absolute.
	AllowedImagePaths []string `json:"allowed_image_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AutosaveDebounceMs: 1000,
		SaveSuppressionMs:  1000,
		DefaultAuthorName:  "AI Assistant",
		DefaultAuthorEmail: "ai@superdoc.dev",
		MaxImageBytes:      10 << 20,
	}
}

// AutosaveDebounce returns the debounce interval as a duration.
func (c *Config) AutosaveDebounce() time.Duration {
	return time.Duration(c.AutosaveDebounceMs) * time.Millisecond
}

// SaveSuppression returns the self-write suppression window as a duration.
func (c *Config) SaveSuppression() time.Duration {
	return time.Duration(c.SaveSuppressionMs) * time.Millisecond
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.docbridge.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
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

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.AutosaveDebounceMs = overlay.AutosaveDebounceMs
	if result.AutosaveDebounceMs == 0 {
		result.AutosaveDebounceMs = base.AutosaveDebounceMs
	}

	result.SaveSuppressionMs = overlay.SaveSuppressionMs
	if result.SaveSuppressionMs == 0 {
		result.SaveSuppressionMs = base.SaveSuppressionMs
	}

	result.DefaultAuthorName = overlay.DefaultAuthorName
	if result.DefaultAuthorName == "" {
		result.DefaultAuthorName = base.DefaultAuthorName
	}

	result.DefaultAuthorEmail = overlay.DefaultAuthorEmail
	if result.DefaultAuthorEmail == "" {
		result.DefaultAuthorEmail = base.DefaultAuthorEmail
	}

	result.MaxImageBytes = overlay.MaxImageBytes
	if result.MaxImageBytes == 0 {
		result.MaxImageBytes = base.MaxImageBytes
	}

	result.AllowedImagePaths = mergeStringSlice(base.AllowedImagePaths, overlay.AllowedImagePaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
