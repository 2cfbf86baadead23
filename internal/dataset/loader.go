package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/trailgrade/trailgrade/internal/engine"
	"github.com/trailgrade/trailgrade/internal/fetch"
	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/raster"
)

// LoaderConfig holds configuration for the dataset loader.
type LoaderConfig struct {
	// DataDir is prepended to relative source paths.
	DataDir string

	// Sources fetches URL-backed layers. If nil, a default registry is
	// created.
	Sources *fetch.Registry

	// Logger for load operations.
	Logger zerolog.Logger
}

// Loader assembles engine bundles from dataset configs.
type Loader struct {
	dataDir string
	sources *fetch.Registry
	logger  zerolog.Logger
}

// NewLoader creates a dataset loader.
func NewLoader(cfg LoaderConfig) *Loader {
	sources := cfg.Sources
	if sources == nil {
		sources = fetch.NewRegistry()
	}
	return &Loader{
		dataDir: cfg.DataDir,
		sources: sources,
		logger:  cfg.Logger,
	}
}

// Load reads all three layers of a dataset and assembles the immutable
// session bundle for the given study area.
func (l *Loader) Load(ctx context.Context, cfg Config, area geo.BBox) (engine.Bundle, error) {
	started := time.Now()

	trailData, err := l.open(ctx, cfg, cfg.Trails)
	if err != nil {
		return engine.Bundle{}, fmt.Errorf("loading trails for %s: %w", cfg.Name, err)
	}
	trails, err := ReadVector(bytes.NewReader(trailData))
	if err != nil {
		return engine.Bundle{}, fmt.Errorf("parsing trails for %s: %w", cfg.Name, err)
	}

	roadData, err := l.open(ctx, cfg, cfg.Roads)
	if err != nil {
		return engine.Bundle{}, fmt.Errorf("loading roads for %s: %w", cfg.Name, err)
	}
	roads, err := ReadVector(bytes.NewReader(roadData))
	if err != nil {
		return engine.Bundle{}, fmt.Errorf("parsing roads for %s: %w", cfg.Name, err)
	}

	slopeData, err := l.open(ctx, cfg, cfg.Slope)
	if err != nil {
		return engine.Bundle{}, fmt.Errorf("loading slope grid for %s: %w", cfg.Name, err)
	}
	grid, err := raster.ParseASCIIGrid(bytes.NewReader(slopeData), cfg.CRS)
	if err != nil {
		return engine.Bundle{}, fmt.Errorf("parsing slope grid for %s: %w", cfg.Name, err)
	}

	l.logger.Info().
		Str("dataset", cfg.Name).
		Str("crs", cfg.CRS).
		Int("trails", len(trails)).
		Int("roads", len(roads)).
		Dur("elapsed", time.Since(started)).
		Msg("dataset loaded")

	return engine.Bundle{
		Area:   area,
		CRS:    cfg.CRS,
		Trails: trails,
		Roads:  roads,
		Slopes: grid,
	}, nil
}

func (l *Loader) open(ctx context.Context, cfg Config, src Source) ([]byte, error) {
	switch {
	case src.Path != "":
		path := src.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(l.dataDir, path)
		}
		return os.ReadFile(path)
	case src.URL != "":
		return l.sources.Client(cfg.Name).Fetch(ctx, src.URL)
	default:
		return nil, ErrNoSource
	}
}
