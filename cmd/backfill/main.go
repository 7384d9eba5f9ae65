package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"realty-backend/internal/config"
	"realty-backend/internal/db"
	"realty-backend/internal/geo"
	"realty-backend/internal/geocode"
	"realty-backend/internal/property"
)

// backfill runs one coordinate pass and exits; the API can also run it on a schedule.
func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	workers := flag.Int("workers", 0, "concurrent lookups (default BACKFILL_WORKERS)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	if *workers <= 0 {
		*workers = cfg.BackfillWorkers
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	geoCache, err := geocode.OpenFileCache(cfg.GeocodeCacheFile)
	if err != nil {
		logger.Error("geocode cache unreadable", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var geocoder geocode.Geocoder
	if cfg.GoogleAPIKey != "" {
		googleClient, err := geocode.NewClient(cfg.GoogleAPIKey, cfg.GeocodeRPS, geocode.WithRegionSuffix(cfg.GeocodeRegionSuffix))
		if err != nil {
			logger.Error("google geocoding setup failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		geocoder = googleClient
	}
	resolver := geocode.NewResolver(geo.Neighborhoods(), geoCache, geocoder, logger)

	backfiller := property.NewBackfiller(property.NewRepository(cols.Properties), resolver, *workers, logger)
	report, err := backfiller.Run(ctx)
	if err != nil {
		logger.Error("backfill failed",
			slog.String("error", err.Error()),
			slog.Int("updated", report.Updated),
			slog.Int("scanned", report.Scanned),
		)
		os.Exit(1)
	}
	if report.Failed > 0 {
		os.Exit(2)
	}
}
