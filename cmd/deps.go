package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bova-research/dcatlas/internal/boundary"
	"github.com/bova-research/dcatlas/internal/checkpoint"
	"github.com/bova-research/dcatlas/internal/fetch"
	"github.com/bova-research/dcatlas/pkg/geocode"
)

// openCheckpoint opens (and migrates) the checkpoint database.
func openCheckpoint(ctx context.Context) (*checkpoint.Store, error) {
	ttl := time.Duration(cfg.Geocode.CacheTTLDays) * 24 * time.Hour
	st, err := checkpoint.New(cfg.Paths.CheckpointDB, ttl)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	// Expired cache rows are dead weight; clear them while the store is
	// fresh rather than during the run.
	if n, err := st.PruneExpired(ctx); err != nil {
		zap.L().Warn("checkpoint: prune failed", zap.Error(err))
	} else if n > 0 {
		zap.L().Debug("checkpoint: expired geocode cache entries pruned", zap.Int("entries", n))
	}
	return st, nil
}

// newProviders builds the geocoder cascade in priority order: Census, then
// Google when a key is configured, then Nominatim.
func newProviders() []geocode.Provider {
	return []geocode.Provider{
		geocode.NewCensusProvider(
			geocode.WithCensusRateLimit(cfg.Geocode.CensusRPS),
		),
		geocode.NewGoogleProvider(cfg.Geocode.GoogleKey,
			geocode.WithGoogleRateLimit(cfg.Geocode.GoogleRPS),
		),
		geocode.NewNominatimProvider(cfg.Geocode.UserAgent,
			geocode.WithNominatimBaseURL(cfg.Geocode.NominatimBaseURL),
			geocode.WithNominatimRateLimit(cfg.Geocode.NominatimRPS),
		),
	}
}

// newGeocoder wires the cascade with the checkpoint store as its cache.
func newGeocoder(cache geocode.Cache) *geocode.CascadeClient {
	return geocode.NewCascadeClient(newProviders(),
		geocode.WithCascadeCache(cache),
		geocode.WithCascadeBatchConcurrency(cfg.Clean.Concurrency),
	)
}

// loadBoundaries returns the state boundary index, downloading the TIGER
// shapefile when no local path is configured.
func loadBoundaries(ctx context.Context) (*boundary.Index, error) {
	shpPath := cfg.Boundary.ShapefilePath
	if shpPath == "" {
		d := fetch.NewDownloader(fetch.Options{UserAgent: cfg.Geocode.UserAgent})
		downloaded, err := boundary.Download(ctx, d, cfg.Boundary.ShapefileURL, cfg.Paths.TempDir)
		if err != nil {
			return nil, eris.Wrap(err, "download state boundaries")
		}
		shpPath = downloaded
	}
	return boundary.LoadShapefile(shpPath)
}
