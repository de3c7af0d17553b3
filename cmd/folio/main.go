package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/folio/internal/config"
	"github.com/csheth/folio/internal/pages"
	"github.com/csheth/folio/internal/render"
	"github.com/csheth/folio/internal/thumbcache"
	"github.com/csheth/folio/internal/tui"

	applog "github.com/csheth/folio/internal/log"
)

type options struct {
	dir         string
	manifest    string
	url         string
	pdf         string
	configPath  string
	noAltScreen bool
	printConfig bool
	writeConfig bool
	page        int
	args        []string
}

var errNoSource = errors.New("no page source: pass -dir, -manifest, -url or a path")

func main() {
	var opts options
	flag.StringVar(&opts.dir, "dir", "", "directory of page images")
	flag.StringVar(&opts.manifest, "manifest", "", "YAML or JSON page manifest")
	flag.StringVar(&opts.url, "url", "", "HTTP endpoint serving a JSON page listing")
	flag.StringVar(&opts.pdf, "pdf", "", "companion PDF the pages were rasterized from")
	flag.StringVar(&opts.configPath, "config", "", "config file (default: user config dir)")
	flag.BoolVar(&opts.noAltScreen, "no-alt-screen", false, "disable the alternate screen buffer")
	flag.IntVar(&opts.page, "page", 0, "page to open at")
	flag.BoolVar(&opts.printConfig, "print-config", false, "print the effective configuration and exit")
	flag.BoolVar(&opts.writeConfig, "write-config", false, "write the effective configuration to the config file and exit")
	flag.Parse()
	opts.args = flag.Args()

	if err := run(opts); err != nil {
		fmt.Println("folio:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.configPath == "" {
		opts.configPath = os.Getenv(config.EnvConfigPath)
	}
	cfg, cfgErr := config.Load(opts.configPath)
	if cfgErr != nil {
		fmt.Println("config ignored:", cfgErr)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	log := applog.WithComponent("cli")
	if cfgErr != nil {
		log.Warn("config file ignored, using defaults", slog.String("path", opts.configPath), slog.Any("err", cfgErr))
	}
	switch {
	case opts.printConfig:
		return printConfig(os.Stdout, cfg)
	case opts.writeConfig:
		if err := config.Save(opts.configPath, cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		log.Info("config written", slog.String("path", opts.configPath))
		return nil
	}

	client := &http.Client{Timeout: 30 * time.Second}
	src, err := buildSource(opts, client)
	if err != nil {
		return err
	}
	log.Info("starting", slog.String("source", src.Name()))

	fetcher, err := pages.NewFetcher(filepath.Join(cfg.Cache.Dir, "pages"), client, cfg.Cache.TTL())
	if err != nil {
		return fmt.Errorf("page cache: %w", err)
	}
	bitmaps := render.NewMemoLoader(render.DecodeLoader{Opener: fetcher}, cfg.Cache.MemoryBitmaps)

	thumbs := thumbcache.Loader{Base: bitmaps, Width: cfg.Viewer.ThumbnailWidth, Versions: fetcher}
	if cache, err := thumbcache.Open(cfg.Cache.ThumbsDB, cfg.Cache.ThumbsMaxBytes); err != nil {
		log.Warn("thumbnail cache disabled", slog.String("path", cfg.Cache.ThumbsDB), slog.Any("err", err))
	} else {
		defer cache.Close()
		thumbs.Cache = cache
	}

	var companion *pages.DocumentInfo
	if opts.pdf != "" {
		info, err := pages.InspectPDF(opts.pdf)
		if err != nil {
			log.Warn("companion PDF unreadable", slog.String("pdf", opts.pdf), slog.Any("err", err))
		} else {
			companion = &info
		}
	}

	programOpts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !opts.noAltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Source:      src,
			PageLoader:  bitmaps,
			ThumbLoader: thumbs,
			Viewer:      cfg.Viewer,
			StartPage:   opts.page,
			Companion:   companion,
			OnReload: func() {
				fetcher.Revalidate()
				bitmaps.Forget()
			},
		}),
		programOpts...,
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

// buildSource picks the page source from flags, falling back to the first
// positional argument: an http(s) URL, a manifest file or a directory.
func buildSource(opts options, client *http.Client) (pages.Source, error) {
	switch {
	case opts.dir != "":
		return pages.DirSource{Dir: opts.dir}, nil
	case opts.manifest != "":
		return &pages.ManifestSource{Path: opts.manifest}, nil
	case opts.url != "":
		return &pages.HTTPSource{Endpoint: opts.url, Client: client}, nil
	}
	if len(opts.args) == 0 {
		return nil, errNoSource
	}
	arg := opts.args[0]
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return &pages.HTTPSource{Endpoint: arg, Client: client}, nil
	}
	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return pages.DirSource{Dir: arg}, nil
	}
	return &pages.ManifestSource{Path: arg}, nil
}
