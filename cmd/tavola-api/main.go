package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tavola/internal/config"
	"tavola/internal/extract"
	"tavola/internal/fingerprint"
	server "tavola/internal/http"
	"tavola/internal/pipeline"
	"tavola/internal/scraper"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	src := fingerprint.NewTimeSource()
	settle := time.Duration(cfg.Scraper.SettleMs) * time.Millisecond

	var fetcher scraper.Fetcher
	switch cfg.Scraper.Engine {
	case "http":
		fetcher = scraper.NewHTTPFetcher(src)
	case "rod":
		fetcher = scraper.NewRodFetcher(scraper.Shared(), settle, src)
	case "rod-stealth":
		fetcher = scraper.NewStealthFetcher(settle, src)
	default:
		log.Fatalf("invalid scraper engine: %s (expected http|rod|rod-stealth)", cfg.Scraper.Engine)
	}

	pipe := pipeline.New(cfg, fetcher, newExtractor(cfg), src, logger)

	// Tear the shared browser down on shutdown so Chromium does not
	// outlive the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		scraper.Shared().Close()
		os.Exit(0)
	}()

	s := server.NewServer(cfg, pipe, logger)
	logger.Info("starting", "engine", fetcher.Name(), "addr", cfg.Server.Host, "port", cfg.Server.Port)
	if err := s.Listen(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// newExtractor pairs each engine with its extractor: the selector-table
// DOM walk for http and rod, the raw-text regex variant for
// stealth-rendered payloads.
func newExtractor(cfg *config.Config) extract.Extractor {
	if cfg.Scraper.Engine == "rod-stealth" {
		return extract.NewRegexExtractor(fallbacks(cfg))
	}
	return extract.NewDocExtractor(selectorTable(cfg), fallbacks(cfg))
}

// selectorTable merges configured selector overrides over the built-in
// table.
func selectorTable(cfg *config.Config) extract.Table {
	t := extract.DefaultTable()
	sel := cfg.Selectors
	if sel.Version != "" {
		t.Version = sel.Version
	}
	if len(sel.Name) > 0 {
		t.Name = sel.Name
	}
	if len(sel.Rating) > 0 {
		t.Rating = sel.Rating
	}
	if len(sel.Price) > 0 {
		t.Price = sel.Price
	}
	if len(sel.Description) > 0 {
		t.Description = sel.Description
	}
	if len(sel.Address) > 0 {
		t.Address = sel.Address
	}
	if len(sel.CuisineAreas) > 0 {
		t.CuisineAreas = sel.CuisineAreas
	}
	if len(sel.PhoneContainers) > 0 {
		t.PhoneContainers = sel.PhoneContainers
	}
	return t
}

func fallbacks(cfg *config.Config) extract.Fallbacks {
	fb := extract.DefaultFallbacks()
	fb.Address = cfg.Defaults.Address
	fb.Locality = cfg.Defaults.Locality
	fb.Latitude = cfg.Defaults.Latitude
	fb.Longitude = cfg.Defaults.Longitude
	return fb
}
