// Package worker provides background job processing for TrailGrade.
package worker

import (
	"time"

	"github.com/trailgrade/trailgrade/internal/buffer"
	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/router"
)

// WarmTarget represents a study area to pre-build.
type WarmTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Dataset is the catalog entry the target loads from.
	Dataset string

	// Area is the study area in the dataset CRS.
	Area geo.BBox

	// Start is the trailhead used for the pre-computed buffer surface.
	Start geo.Point

	// Priority determines warm order (lower = higher priority).
	Priority int
}

// WarmConfig holds configuration for the network warm job.
type WarmConfig struct {
	// Targets are the study areas to pre-build.
	// If empty, uses DefaultWarmTargets.
	Targets []WarmTarget

	// Concurrency is the number of concurrent warm operations.
	// Default: 2
	Concurrency int

	// Timeout is the timeout for each target.
	// Default: 5 minutes
	Timeout time.Duration

	// ComputeBuffer enables pre-computing the buffer surface along with the
	// network.
	// Default: true
	ComputeBuffer bool

	// Weights are the difficulty weights for pre-computed surfaces.
	Weights router.Weights

	// BufferWidth and BufferCellSize configure the pre-computed surface.
	// Defaults match the buffer package.
	BufferWidth    float64
	BufferCellSize float64
}

// DefaultWarmConfig returns the default warm configuration.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		Targets:        DefaultWarmTargets(),
		Concurrency:    2,
		Timeout:        5 * time.Minute,
		ComputeBuffer:  true,
		Weights:        router.Weights{OnTrail: 1, OffTrail: 3},
		BufferWidth:    buffer.DefaultWidth,
		BufferCellSize: buffer.DefaultCellSize,
	}
}

// DefaultWarmTargets returns the default warm targets. These are the study
// areas the field teams visit most, in UTM zone 32N coordinates.
func DefaultWarmTargets() []WarmTarget {
	return []WarmTarget{
		{
			Name:     "Rondane east",
			Dataset:  "rondane",
			Priority: 1,
			Area:     geo.BBox{MinX: 548000, MinY: 6858000, MaxX: 572000, MaxY: 6882000},
			Start:    geo.Point{X: 559500, Y: 6869000}, // Spranget trailhead
		},
		{
			Name:     "Rondane west",
			Dataset:  "rondane",
			Priority: 2,
			Area:     geo.BBox{MinX: 534000, MinY: 6854000, MaxX: 556000, MaxY: 6876000},
			Start:    geo.Point{X: 543200, Y: 6862500}, // Mysusaeter
		},
		{
			Name:     "Jotunheimen north",
			Dataset:  "jotunheimen",
			Priority: 1,
			Area:     geo.BBox{MinX: 462000, MinY: 6844000, MaxX: 488000, MaxY: 6868000},
			Start:    geo.Point{X: 471800, Y: 6855400}, // Spiterstulen
		},
		{
			Name:     "Jotunheimen east",
			Dataset:  "jotunheimen",
			Priority: 2,
			Area:     geo.BBox{MinX: 480000, MinY: 6836000, MaxX: 504000, MaxY: 6858000},
			Start:    geo.Point{X: 490300, Y: 6846200}, // Gjendesheim
		},
	}
}

// TotalTargets returns the number of targets to warm.
func (c WarmConfig) TotalTargets() int {
	return len(c.Targets)
}
