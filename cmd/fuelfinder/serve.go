package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/urfave/cli/v2"

	"github.com/openfuelmap/fuelfinder/internal/controller"
	"github.com/openfuelmap/fuelfinder/internal/geo"
	"github.com/openfuelmap/fuelfinder/internal/history"
	"github.com/openfuelmap/fuelfinder/internal/markers"
	"github.com/openfuelmap/fuelfinder/internal/search"
	"github.com/openfuelmap/fuelfinder/internal/server"
	"github.com/openfuelmap/fuelfinder/internal/translations"
	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the fuel search HTTP server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP server port",
				Value:   8080,
				EnvVars: []string{"FUELFINDER_PORT"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Search history database file",
				Value:   "fuelfinder.db",
				EnvVars: []string{"FUELFINDER_DB"},
			},
			&cli.StringFlag{
				Name:    "nominatim-url",
				Usage:   "Nominatim server URL",
				Value:   geo.DefaultNominatimServer,
				EnvVars: []string{"FUELFINDER_NOMINATIM_URL"},
			},
			&cli.StringFlag{
				Name:    "prezzi-url",
				Usage:   "Fuel price provider URL",
				Value:   prezzi.DefaultBaseURL,
				EnvVars: []string{"FUELFINDER_PREZZI_URL"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Whole-search timeout",
				Value:   controller.DefaultTimeout,
				EnvVars: []string{"FUELFINDER_TIMEOUT"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				EnvVars: []string{"FUELFINDER_DEBUG"},
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	ctx := context.Background()

	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := httplog.NewLogger("fuelfinder", httplog.Options{
		JSON:            false,
		LogLevel:        level,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})

	geocoder, err := geo.NewNominatimGeocoder(c.String("nominatim-url"))
	if err != nil {
		return err
	}
	resolver := geo.NewResolver(geo.ResolverOptions{
		Geocoder: geocoder,
		Logger:   logger.Logger,
	})

	client := prezzi.NewClient(prezzi.Options{BaseURL: c.String("prezzi-url")})
	fetcher := search.NewFetcher(client, logger.Logger)
	orchestrator := search.NewOrchestrator(resolver, fetcher, logger.Logger)

	store, err := history.NewStore(ctx, c.String("db"), logger.Logger)
	if err != nil {
		return fmt.Errorf("error initializing history store: %w", err)
	}
	defer store.Close()

	surface := markers.NewStateSurface()
	registry := markers.NewRegistry(surface, markers.TranslateFunc(translations.Translator("it")), logger.Logger)

	ctrl := controller.New(controller.Options{
		Searcher: orchestrator,
		Registry: registry,
		Recorder: store,
		Timeout:  c.Duration("timeout"),
		Logger:   logger.Logger,
	})

	srv := server.New(server.Options{
		Controller: ctrl,
		Registry:   registry,
		Surface:    surface,
		History:    store,
		Logger:     logger,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", c.Int("port"))
	logger.Info("Starting server", "addr", addr)
	return http.ListenAndServe(addr, srv.Router())
}
