package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eleven-am/transkit"
	"github.com/eleven-am/transkit/internal/config"
	"github.com/eleven-am/transkit/internal/fetch"
	"github.com/eleven-am/transkit/internal/httpapi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	def := config.Default()
	addr := flag.String("addr", def.Addr, "HTTP listen address")
	cfgPath := flag.String("config", "", "Path to transkit.yaml")
	manifestArg := flag.String("manifest", "", "IIIF manifest path or URL (overrides config)")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "transkitd").Logger()
	log.Logger = logger

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if *addr != def.Addr {
		cfg.Addr = *addr
	}
	if *manifestArg != "" {
		if looksLikeURL(*manifestArg) {
			cfg.ManifestURL = *manifestArg
		} else {
			cfg.ManifestPath = *manifestArg
		}
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := fetch.NewHTTPFetcher(time.Duration(cfg.FetchTimeoutSeconds)*time.Second, logger)

	var reader transkit.ManifestReader
	if cfg.ManifestPath != "" || cfg.ManifestURL != "" {
		data, err := readManifest(shutdownCtx, cfg, fetcher)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to read manifest")
		}
		reader, err = transkit.ParseManifest(data)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to parse manifest")
		}
	}

	hub := httpapi.NewHub(logger)
	bridge := httpapi.NewBridge(hub)

	ctrl := transkit.NewController(transkit.Options{
		Playback:     bridge,
		Manifest:     reader,
		Fetcher:      fetcher,
		FetchTimeout: time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		Logger:       logger,
	})

	if err := ctrl.LoadUnits(shutdownCtx, explicitSources(cfg)); err != nil {
		logger.Fatal().Err(err).Msg("failed to load units")
	}
	logger.Info().Int("units", ctrl.UnitCount()).Msg("transcript sources resolved")

	handler := httpapi.NewHandler(ctrl, bridge, hub, logger)
	go handler.Run(shutdownCtx)

	r := chi.NewRouter()
	r.Route("/api", handler.Routes)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
}

func explicitSources(cfg config.Config) [][]transkit.ExplicitSource {
	if len(cfg.Transcripts) == 0 {
		return nil
	}
	units := make([][]transkit.ExplicitSource, len(cfg.Transcripts))
	for i, entries := range cfg.Transcripts {
		for _, e := range entries {
			units[i] = append(units[i], transkit.ExplicitSource{
				Title:            e.Title,
				URL:              e.URL,
				MachineGenerated: e.MachineGenerated,
			})
		}
	}
	return units
}

func readManifest(ctx context.Context, cfg config.Config, fetcher *fetch.HTTPFetcher) ([]byte, error) {
	if cfg.ManifestURL != "" {
		return fetcher.Fetch(ctx, cfg.ManifestURL)
	}
	return os.ReadFile(cfg.ManifestPath)
}

func looksLikeURL(s string) bool {
	return len(s) > 7 && (s[:7] == "http://" || s[:8] == "https://")
}
