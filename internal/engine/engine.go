// Package engine orchestrates the terrain difficulty pipeline for one study
// session: it holds the immutable dataset bundle, rebuilds the network when
// the area or thresholds change, and memoizes derived difficulty and buffer
// results until an upstream input changes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trailgrade/trailgrade/internal/buffer"
	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/network"
	"github.com/trailgrade/trailgrade/internal/router"
)

var (
	// ErrNoBundle indicates no dataset bundle has been loaded yet.
	ErrNoBundle = errors.New("no dataset bundle loaded")

	// ErrNoNetwork indicates the bundle produced no routable geometry.
	ErrNoNetwork = errors.New("network has no nodes")
)

// Bundle is the immutable per-session dataset: study area, slope raster and
// vector geometry, all in the same CRS. Replacing the bundle invalidates
// every derived result.
type Bundle struct {
	Area   geo.BBox
	CRS    string
	Trails []geo.Polyline
	Roads  []geo.Polyline
	Slopes network.SlopeSampler
}

// Config holds configuration for the engine service.
type Config struct {
	// Logger for service operations.
	Logger zerolog.Logger

	// Thresholds are the initial connector distances.
	Thresholds network.Thresholds

	// SlopeGain scales how slope inflates cost (default: builder default).
	SlopeGain float64

	// SampleInterval is the along-edge slope sampling step (default:
	// sampler default).
	SampleInterval float64

	// BufferWorkers bounds buffer aggregation concurrency (default:
	// aggregator default).
	BufferWorkers int
}

// Service runs the pipeline with memoization. All methods are safe for
// concurrent use; derived results are invalidated wholesale whenever the
// bundle, area or thresholds change.
type Service struct {
	logger         zerolog.Logger
	slopeGain      float64
	sampleInterval float64
	bufferWorkers  int

	mu         sync.RWMutex
	bundle     *Bundle
	thresholds network.Thresholds

	net *network.Network
	rt  *router.Router
	agg *buffer.Aggregator

	results map[string][]router.Result
	cells   map[string][]buffer.Cell
}

// NewService creates an engine service.
func NewService(cfg Config) *Service {
	return &Service{
		logger:         cfg.Logger,
		thresholds:     cfg.Thresholds,
		slopeGain:      cfg.SlopeGain,
		sampleInterval: cfg.SampleInterval,
		bufferWorkers:  cfg.BufferWorkers,
		results:        make(map[string][]router.Result),
		cells:          make(map[string][]buffer.Cell),
	}
}

// SetBundle replaces the session dataset and drops the network and every
// derived result.
func (s *Service) SetBundle(b Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bundle = &b
	s.invalidateLocked()
	s.logger.Info().
		Str("crs", b.CRS).
		Int("trails", len(b.Trails)).
		Int("roads", len(b.Roads)).
		Msg("dataset bundle replaced")
}

// SetThresholds replaces the connector thresholds and drops the network and
// every derived result.
func (s *Service) SetThresholds(t network.Thresholds) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t == s.thresholds {
		return
	}
	s.thresholds = t
	s.invalidateLocked()
	s.logger.Info().
		Float64("trail_trail", t.TrailTrail).
		Float64("trail_road", t.TrailRoad).
		Msg("connectivity thresholds replaced")
}

// Invalidate drops the built network and all memoized results.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

func (s *Service) invalidateLocked() {
	s.net = nil
	s.rt = nil
	s.agg = nil
	s.results = make(map[string][]router.Result)
	s.cells = make(map[string][]buffer.Cell)
}

// Network returns the built graph, building it on first use after an
// invalidation.
func (s *Service) Network(ctx context.Context) (*network.Network, error) {
	s.mu.RLock()
	if s.net != nil {
		net := s.net
		s.mu.RUnlock()
		return net, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildLocked()
}

// buildLocked constructs the network; the caller holds the write lock. The
// nil check doubles as protection against concurrent rebuilds.
func (s *Service) buildLocked() (*network.Network, error) {
	if s.net != nil {
		return s.net, nil
	}
	if s.bundle == nil {
		return nil, ErrNoBundle
	}

	started := time.Now()
	net, err := network.Build(network.BuildConfig{
		Area:           s.bundle.Area,
		CRS:            s.bundle.CRS,
		Thresholds:     s.thresholds,
		SampleInterval: s.sampleInterval,
		SlopeGain:      s.slopeGain,
	}, s.bundle.Trails, s.bundle.Roads, s.bundle.Slopes)
	if err != nil {
		s.logger.Error().Err(err).Msg("network build failed")
		return nil, err
	}

	s.net = net
	s.rt = router.New(net, s.bundle.Slopes, s.slopeGain)
	s.agg = buffer.New(net, s.rt)
	s.logger.Info().
		Int("nodes", len(net.Nodes)).
		Int("edges", len(net.Edges)).
		Dur("elapsed", time.Since(started)).
		Msg("network built")
	return net, nil
}

// Project snaps a coordinate onto the current network.
func (s *Service) Project(ctx context.Context, p geo.Point) (network.Location, error) {
	net, err := s.Network(ctx)
	if err != nil {
		return network.Location{}, err
	}
	loc, ok := net.Project(p)
	if !ok {
		return network.Location{}, ErrNoNetwork
	}
	return loc, nil
}

// Difficulty computes per-target difficulty from a start coordinate,
// memoized on (network, start, weights, targets).
func (s *Service) Difficulty(ctx context.Context, start geo.Point, targets []router.StudyPoint, w router.Weights) ([]router.Result, error) {
	w = w.Normalized()
	key := difficultyKey(start, targets, w)

	s.mu.RLock()
	if cached, ok := s.results[key]; ok {
		s.mu.RUnlock()
		s.logger.Debug().Str("cache_key", key).Msg("cache hit for difficulty")
		return cached, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.results[key]; ok {
		return cached, nil
	}
	if _, err := s.buildLocked(); err != nil {
		return nil, err
	}

	loc, ok := s.net.Project(start)
	if !ok {
		return nil, ErrNoNetwork
	}
	results := s.rt.Route(loc, start, targets, w)
	s.results[key] = results
	s.logger.Debug().
		Str("cache_key", key).
		Int("targets", len(targets)).
		Msg("cached difficulty results")
	return results, nil
}

// Buffer computes the difficulty surface around the trail network, memoized
// on (network, start, weights, grid).
func (s *Service) Buffer(ctx context.Context, start geo.Point, w router.Weights, width, cellSize float64) ([]buffer.Cell, error) {
	w = w.Normalized()
	key := bufferKey(start, w, width, cellSize)

	s.mu.RLock()
	if cached, ok := s.cells[key]; ok {
		s.mu.RUnlock()
		s.logger.Debug().Str("cache_key", key).Msg("cache hit for buffer")
		return cached, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cells[key]; ok {
		return cached, nil
	}
	if _, err := s.buildLocked(); err != nil {
		return nil, err
	}

	loc, ok := s.net.Project(start)
	if !ok {
		return nil, ErrNoNetwork
	}
	started := time.Now()
	cells, err := s.agg.Aggregate(ctx, loc, start, w, buffer.Config{
		Width:    width,
		CellSize: cellSize,
		Workers:  s.bufferWorkers,
	})
	if err != nil {
		return nil, err
	}
	s.cells[key] = cells
	s.logger.Debug().
		Str("cache_key", key).
		Int("cells", len(cells)).
		Dur("elapsed", time.Since(started)).
		Msg("cached buffer cells")
	return cells, nil
}

// CacheStats contains memoization statistics.
type CacheStats struct {
	ResultSets int
	BufferSets int
	NetworkUp  bool
}

// Stats returns memoization statistics.
func (s *Service) Stats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CacheStats{
		ResultSets: len(s.results),
		BufferSets: len(s.cells),
		NetworkUp:  s.net != nil,
	}
}

// difficultyKey hashes the full query so any changed input misses the cache.
func difficultyKey(start geo.Point, targets []router.StudyPoint, w router.Weights) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%.9f,%.9f|%g,%g", start.X, start.Y, w.OnTrail, w.OffTrail)
	for _, t := range targets {
		fmt.Fprintf(h, "|%s:%.9f,%.9f", t.Name, t.Pt.X, t.Pt.Y)
	}
	return fmt.Sprintf("diff:%x", h.Sum64())
}

func bufferKey(start geo.Point, w router.Weights, width, cellSize float64) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%.9f,%.9f|%g,%g|%g|%g", start.X, start.Y, w.OnTrail, w.OffTrail, width, cellSize)
	return fmt.Sprintf("buf:%x", h.Sum64())
}
