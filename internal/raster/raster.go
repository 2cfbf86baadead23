// Package raster provides read-only sampling of a georeferenced slope grid.
// The grid is immutable once loaded; all sampling operations are pure reads.
package raster

import (
	"errors"
	"math"

	"github.com/trailgrade/trailgrade/internal/geo"
)

// Sampling errors.
var (
	// ErrOutOfBounds is returned when a query coordinate lies outside the
	// raster extent. Callers should pre-check extent overlap instead of
	// relying on this per query.
	ErrOutOfBounds = errors.New("coordinate outside raster extent")

	// ErrNoData is returned when every sample along a line falls on nodata cells.
	ErrNoData = errors.New("no valid raster data along line")
)

// DefaultSampleInterval is the along-line sampling step in CRS units.
const DefaultSampleInterval = 10.0

// Grid is a georeferenced 2D grid of slope magnitude values. The origin is
// the minimum (lower-left) corner; rows are stored bottom-up.
type Grid struct {
	originX  float64
	originY  float64
	cellSize float64
	cols     int
	rows     int
	nodata   float64
	values   []float64
	crs      string
}

// GridConfig describes a grid to construct.
type GridConfig struct {
	OriginX  float64 // X of the lower-left corner
	OriginY  float64 // Y of the lower-left corner
	CellSize float64
	Cols     int
	Rows     int
	NoData   float64
	CRS      string
}

// NewGrid creates a grid from row-major values ordered bottom-up
// (values[row*cols+col], row 0 at OriginY). The slice length must be
// Cols*Rows.
func NewGrid(cfg GridConfig, values []float64) (*Grid, error) {
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		return nil, errors.New("raster: grid dimensions must be positive")
	}
	if cfg.CellSize <= 0 {
		return nil, errors.New("raster: cell size must be positive")
	}
	if len(values) != cfg.Cols*cfg.Rows {
		return nil, errors.New("raster: value count does not match dimensions")
	}
	return &Grid{
		originX:  cfg.OriginX,
		originY:  cfg.OriginY,
		cellSize: cfg.CellSize,
		cols:     cfg.Cols,
		rows:     cfg.Rows,
		nodata:   cfg.NoData,
		values:   values,
		crs:      cfg.CRS,
	}, nil
}

// CRS returns the raster's coordinate reference system identifier.
func (g *Grid) CRS() string {
	return g.crs
}

// Extent returns the georeferenced bounding box covered by the grid.
func (g *Grid) Extent() geo.BBox {
	return geo.BBox{
		MinX: g.originX,
		MinY: g.originY,
		MaxX: g.originX + float64(g.cols)*g.cellSize,
		MaxY: g.originY + float64(g.rows)*g.cellSize,
	}
}

// CellSize returns the grid resolution in CRS units.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Sample returns the slope value of the cell covering p.
// Returns ErrOutOfBounds if p lies outside the extent and ErrNoData if the
// covering cell holds the nodata marker.
func (g *Grid) Sample(p geo.Point) (float64, error) {
	col := int(math.Floor((p.X - g.originX) / g.cellSize))
	row := int(math.Floor((p.Y - g.originY) / g.cellSize))

	// Points exactly on the max edge belong to the last cell.
	if col == g.cols && p.X == g.originX+float64(g.cols)*g.cellSize {
		col = g.cols - 1
	}
	if row == g.rows && p.Y == g.originY+float64(g.rows)*g.cellSize {
		row = g.rows - 1
	}

	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return 0, ErrOutOfBounds
	}

	v := g.values[row*g.cols+col]
	if v == g.nodata {
		return 0, ErrNoData
	}
	return v, nil
}

// SampleLine returns the mean absolute slope along the segment a-b, sampled
// every interval units (endpoints included). Nodata samples are skipped, the
// way nodata cells are skipped when rating a trail. Returns ErrOutOfBounds
// if any sample lies outside the extent, ErrNoData if every sample fell on a
// nodata cell. An interval <= 0 uses DefaultSampleInterval.
func (g *Grid) SampleLine(a, b geo.Point, interval float64) (float64, error) {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}

	length := a.Dist(b)
	steps := int(math.Ceil(length/interval)) + 1
	if steps < 2 {
		steps = 2
	}

	sum := 0.0
	valid := 0
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		v, err := g.Sample(geo.Lerp(a, b, t))
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return 0, err
		}
		sum += math.Abs(v)
		valid++
	}

	if valid == 0 {
		return 0, ErrNoData
	}
	return sum / float64(valid), nil
}
