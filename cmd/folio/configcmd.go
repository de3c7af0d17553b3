package main

import (
	"fmt"
	"io"

	"github.com/csheth/folio/internal/config"
)

type configEntry struct {
	key   string
	value any
}

func configEntries(cfg config.AppConfig) []configEntry {
	v, c, l := cfg.Viewer, cfg.Cache, cfg.Logging
	return []configEntry{
		{"viewer.visibility_threshold", v.VisibilityThreshold},
		{"viewer.settle_fallback_ms", v.SettleFallbackMs},
		{"viewer.resize_debounce_ms", v.ResizeDebounceMs},
		{"viewer.scroll_frame_ms", v.ScrollFrameMs},
		{"viewer.thumbnail_width", v.ThumbnailWidth},
		{"viewer.sidebar_width", v.SidebarWidth},
		{"viewer.smooth_scroll", v.SmoothScroll},
		{"cache.dir", c.Dir},
		{"cache.ttl_hours", c.TTLHours},
		{"cache.thumbs_db", c.ThumbsDB},
		{"cache.thumbs_max_bytes", c.ThumbsMaxBytes},
		{"cache.memory_bitmaps", c.MemoryBitmaps},
		{"logging.level", l.Level},
		{"logging.format", l.Format},
		{"logging.source", l.Source},
		{"logging.file", l.File},
	}
}

// printConfig lists the effective settings, marking the ones an environment
// variable overrides.
func printConfig(w io.Writer, cfg config.AppConfig) error {
	for _, e := range configEntries(cfg) {
		line := fmt.Sprintf("%s = %v", e.key, e.value)
		if env, ok := config.EnvOverrideFor(e.key); ok {
			line += "  (from " + env + ")"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
