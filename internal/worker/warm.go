package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/trailgrade/trailgrade/internal/dataset"
	"github.com/trailgrade/trailgrade/internal/engine"
	"github.com/trailgrade/trailgrade/internal/network"
)

// WarmJob pre-builds networks and buffer surfaces for the configured study
// areas so that the first API query against them is served from cache.
type WarmJob struct {
	config     WarmConfig
	logger     zerolog.Logger
	catalog    []dataset.Config
	loader     *dataset.Loader
	thresholds network.Thresholds

	engines *engineCache
	metrics *WarmMetrics
}

// engineCache holds one engine per dataset, keyed by dataset name. Warmed
// engines keep their caches across runs and across restricted job views.
type engineCache struct {
	mu sync.Mutex
	m  map[string]*engine.Service
}

func (c *engineCache) get(name string) *engine.Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[name]
}

func (c *engineCache) getOrCreate(name string, cfg engine.Config) *engine.Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	eng, ok := c.m[name]
	if !ok {
		eng = engine.NewService(cfg)
		c.m[name] = eng
	}
	return eng
}

// WarmMetrics tracks warm job statistics.
type WarmMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns       int64
	SuccessfulWarms int64
	FailedWarms     int64
	NetworksBuilt   int64
	BuffersComputed int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmJobConfig holds configuration for creating a WarmJob.
type WarmJobConfig struct {
	Config     WarmConfig
	Logger     zerolog.Logger
	Catalog    []dataset.Config
	Loader     *dataset.Loader
	Thresholds network.Thresholds
}

// NewWarmJob creates a new warm job processor.
func NewWarmJob(cfg WarmJobConfig) *WarmJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultWarmConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}

	catalog := cfg.Catalog
	if len(catalog) == 0 {
		catalog = dataset.DefaultCatalog()
	}

	return &WarmJob{
		config:     config,
		logger:     cfg.Logger,
		catalog:    catalog,
		loader:     cfg.Loader,
		thresholds: cfg.Thresholds,
		engines:    &engineCache{m: make(map[string]*engine.Service)},
		metrics:    &WarmMetrics{},
	}
}

// WarmResult contains the result of one warm run.
type WarmResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalTargets int
	Successful   int
	Failed       int
	Errors       []WarmError
}

// WarmError represents an error while warming one target.
type WarmError struct {
	Target  string
	Dataset string
	Error   string
}

// Run executes the warm job for all configured targets.
func (j *WarmJob) Run(ctx context.Context) *WarmResult {
	startTime := time.Now()
	result := &WarmResult{
		StartTime:    startTime,
		TotalTargets: j.config.TotalTargets(),
	}

	j.logger.Info().
		Int("total_targets", result.TotalTargets).
		Int("concurrency", j.config.Concurrency).
		Msg("starting network warm job")

	targetsChan := make(chan WarmTarget, len(j.config.Targets))
	resultsChan := make(chan targetResult, len(j.config.Targets))

	var wg sync.WaitGroup
	for range j.config.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmWorker(ctx, targetsChan, resultsChan)
		}()
	}

	for _, target := range j.config.Targets {
		targetsChan <- target
	}
	close(targetsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for tr := range resultsChan {
		if tr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Errors = append(result.Errors, tr.errors...)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("network warm job completed")

	return result
}

// Restricted returns a view of the job limited to targets for the named
// datasets. The view shares engines and metrics with the parent job.
func (j *WarmJob) Restricted(datasets []string) *WarmJob {
	wanted := make(map[string]bool, len(datasets))
	for _, name := range datasets {
		wanted[name] = true
	}

	config := j.config
	config.Targets = nil
	for _, target := range j.config.Targets {
		if wanted[target.Dataset] {
			config.Targets = append(config.Targets, target)
		}
	}

	return &WarmJob{
		config:     config,
		logger:     j.logger,
		catalog:    j.catalog,
		loader:     j.loader,
		thresholds: j.thresholds,
		engines:    j.engines,
		metrics:    j.metrics,
	}
}

// Engine returns the warmed engine for a dataset, or nil if the dataset has
// not been warmed.
func (j *WarmJob) Engine(name string) *engine.Service {
	return j.engines.get(name)
}

type targetResult struct {
	target  WarmTarget
	success bool
	errors  []WarmError
}

func (j *WarmJob) warmWorker(ctx context.Context, targets <-chan WarmTarget, results chan<- targetResult) {
	for target := range targets {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.warmTarget(ctx, target)
		}
	}
}

func (j *WarmJob) warmTarget(ctx context.Context, target WarmTarget) targetResult {
	result := targetResult{target: target, success: true}

	targetCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	fail := func(err error) targetResult {
		result.success = false
		result.errors = append(result.errors, WarmError{
			Target:  target.Name,
			Dataset: target.Dataset,
			Error:   err.Error(),
		})
		return result
	}

	cfg, err := dataset.Lookup(j.catalog, target.Dataset)
	if err != nil {
		return fail(err)
	}

	bundle, err := j.loader.Load(targetCtx, cfg, target.Area)
	if err != nil {
		return fail(err)
	}

	eng := j.engineFor(target.Dataset)
	eng.SetBundle(bundle)

	if _, err := eng.Network(targetCtx); err != nil {
		return fail(err)
	}
	atomic.AddInt64(&j.metrics.NetworksBuilt, 1)

	if j.config.ComputeBuffer {
		_, err := eng.Buffer(targetCtx, target.Start, j.config.Weights, j.config.BufferWidth, j.config.BufferCellSize)
		if err != nil {
			return fail(err)
		}
		atomic.AddInt64(&j.metrics.BuffersComputed, 1)
	}

	return result
}

func (j *WarmJob) engineFor(name string) *engine.Service {
	return j.engines.getOrCreate(name, engine.Config{
		Logger:     j.logger.With().Str("dataset", name).Logger(),
		Thresholds: j.thresholds,
	})
}

func (j *WarmJob) updateMetrics(result *WarmResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulWarms += int64(result.Successful)
	j.metrics.FailedWarms += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmJob) GetMetrics() WarmMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return WarmMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		SuccessfulWarms: j.metrics.SuccessfulWarms,
		FailedWarms:     j.metrics.FailedWarms,
		NetworksBuilt:   atomic.LoadInt64(&j.metrics.NetworksBuilt),
		BuffersComputed: atomic.LoadInt64(&j.metrics.BuffersComputed),
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *WarmJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_runs":        m.TotalRuns,
		"successful_warms":  m.SuccessfulWarms,
		"failed_warms":      m.FailedWarms,
		"networks_built":    m.NetworksBuilt,
		"buffers_computed":  m.BuffersComputed,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
