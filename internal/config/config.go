// Package config loads the user-editable folio configuration.
//
// The file is YAML in the user config dir; environment variables are
// read-only overrides applied at load time.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ViewerConfig struct {
	VisibilityThreshold float64 `yaml:"visibility_threshold"`
	SettleFallbackMs    int     `yaml:"settle_fallback_ms"`
	ResizeDebounceMs    int     `yaml:"resize_debounce_ms"`
	ScrollFrameMs       int     `yaml:"scroll_frame_ms"`
	ThumbnailWidth      int     `yaml:"thumbnail_width"`
	SidebarWidth        int     `yaml:"sidebar_width"`
	SmoothScroll        bool    `yaml:"smooth_scroll"`
}

type CacheConfig struct {
	Dir            string `yaml:"dir"`
	TTLHours       int    `yaml:"ttl_hours"`
	ThumbsDB       string `yaml:"thumbs_db"`
	ThumbsMaxBytes int64  `yaml:"thumbs_max_bytes"`
	MemoryBitmaps  int    `yaml:"memory_bitmaps"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is persisted as config.yaml.
// Bump ConfigVersion when the structure changes incompatibly.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Viewer        ViewerConfig  `yaml:"viewer"`
	Cache         CacheConfig   `yaml:"cache"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Viewer: ViewerConfig{
			VisibilityThreshold: 0.5,
			SettleFallbackMs:    1200,
			ResizeDebounceMs:    150,
			ScrollFrameMs:       16,
			ThumbnailWidth:      14,
			SidebarWidth:        34,
			SmoothScroll:        true,
		},
		Cache: CacheConfig{
			TTLHours:       24,
			ThumbsMaxBytes: 64 * 1024 * 1024,
			MemoryBitmaps:  32,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "FOLIO_CONFIG"
	EnvThreshold       = "FOLIO_VISIBILITY_THRESHOLD"
	EnvSettleFallback  = "FOLIO_SETTLE_FALLBACK_MS"
	EnvResizeDebounce  = "FOLIO_RESIZE_DEBOUNCE_MS"
	EnvSmoothScroll    = "FOLIO_SMOOTH_SCROLL"
	EnvCacheDir        = "FOLIO_CACHE_DIR"
	EnvThumbsDB        = "FOLIO_THUMBS_DB"
	EnvThumbsMaxBytes  = "FOLIO_THUMBS_MAX_BYTES"
	EnvLogLevel        = "FOLIO_LOG_LEVEL"
	EnvLogFormat       = "FOLIO_LOG_FORMAT"
	EnvLogSource       = "FOLIO_LOG_SOURCE"
	EnvLogFile         = "FOLIO_LOG_FILE"
	defaultConfigName  = "config.yaml"
	defaultThumbsName  = "thumbs.db"
	defaultCacheSubdir = "folio"
)

// ConfigPath returns the per-user config file path, honoring FOLIO_CONFIG.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "folio", defaultConfigName), nil
}

// Load reads the config at path (ConfigPath when empty), applies defaults and
// merges environment overrides. A missing file is not an error. When the
// file cannot be read or parsed the error is returned together with the
// defaults, still carrying env overrides and derived paths.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	err := readInto(&cfg, path)
	applyEnvOverrides(&cfg)
	fillDerived(&cfg)
	return cfg, err
}

func readInto(cfg *AppConfig, path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	// start from defaults so keys absent from the file keep their default
	fileCfg := Defaults()
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	mergeInto(cfg, &fileCfg)
	return nil
}

// Save writes cfg as YAML to path (ConfigPath when empty).
func Save(path string, cfg AppConfig) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	v := src.Viewer
	if v.VisibilityThreshold > 0 && v.VisibilityThreshold <= 1 {
		dst.Viewer.VisibilityThreshold = v.VisibilityThreshold
	}
	if v.SettleFallbackMs > 0 {
		dst.Viewer.SettleFallbackMs = v.SettleFallbackMs
	}
	if v.ResizeDebounceMs > 0 {
		dst.Viewer.ResizeDebounceMs = v.ResizeDebounceMs
	}
	if v.ScrollFrameMs > 0 {
		dst.Viewer.ScrollFrameMs = v.ScrollFrameMs
	}
	if v.ThumbnailWidth > 0 {
		dst.Viewer.ThumbnailWidth = v.ThumbnailWidth
	}
	if v.SidebarWidth > 0 {
		dst.Viewer.SidebarWidth = v.SidebarWidth
	}
	dst.Viewer.SmoothScroll = v.SmoothScroll

	c := src.Cache
	if strings.TrimSpace(c.Dir) != "" {
		dst.Cache.Dir = strings.TrimSpace(c.Dir)
	}
	if c.TTLHours > 0 {
		dst.Cache.TTLHours = c.TTLHours
	}
	if strings.TrimSpace(c.ThumbsDB) != "" {
		dst.Cache.ThumbsDB = strings.TrimSpace(c.ThumbsDB)
	}
	if c.ThumbsMaxBytes > 0 {
		dst.Cache.ThumbsMaxBytes = c.ThumbsMaxBytes
	}
	if c.MemoryBitmaps > 0 {
		dst.Cache.MemoryBitmaps = c.MemoryBitmaps
	}

	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvThreshold)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			cfg.Viewer.VisibilityThreshold = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSettleFallback)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Viewer.SettleFallbackMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvResizeDebounce)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Viewer.ResizeDebounceMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSmoothScroll)); v != "" {
		cfg.Viewer.SmoothScroll = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheDir)); v != "" {
		cfg.Cache.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvThumbsDB)); v != "" {
		cfg.Cache.ThumbsDB = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvThumbsMaxBytes)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Cache.ThumbsMaxBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// fillDerived resolves paths that default relative to the cache dir.
func fillDerived(cfg *AppConfig) {
	if cfg.Cache.Dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		cfg.Cache.Dir = filepath.Join(base, defaultCacheSubdir)
	}
	if cfg.Cache.ThumbsDB == "" {
		cfg.Cache.ThumbsDB = filepath.Join(cfg.Cache.Dir, defaultThumbsName)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name := ""
	switch key {
	case "viewer.visibility_threshold":
		name = EnvThreshold
	case "viewer.settle_fallback_ms":
		name = EnvSettleFallback
	case "viewer.resize_debounce_ms":
		name = EnvResizeDebounce
	case "viewer.smooth_scroll":
		name = EnvSmoothScroll
	case "cache.dir":
		name = EnvCacheDir
	case "cache.thumbs_db":
		name = EnvThumbsDB
	case "cache.thumbs_max_bytes":
		name = EnvThumbsMaxBytes
	case "logging.level":
		name = EnvLogLevel
	case "logging.format":
		name = EnvLogFormat
	case "logging.source":
		name = EnvLogSource
	case "logging.file":
		name = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(name) != "" {
		return name, true
	}
	return "", false
}

// SettleFallback is the bounded delay after which an unsettled programmatic
// scroll is considered complete.
func (v ViewerConfig) SettleFallback() time.Duration {
	return time.Duration(v.SettleFallbackMs) * time.Millisecond
}

// ResizeDebounce is the quiet period the resize coordinator waits for.
func (v ViewerConfig) ResizeDebounce() time.Duration {
	return time.Duration(v.ResizeDebounceMs) * time.Millisecond
}

// ScrollFrame is the interval between smooth-scroll animation frames.
func (v ViewerConfig) ScrollFrame() time.Duration {
	return time.Duration(v.ScrollFrameMs) * time.Millisecond
}

// TTL is how long a fetched remote bitmap is reused without revalidation.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}
