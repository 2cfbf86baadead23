// Package buffer rasterizes a difficulty surface over the band of terrain
// surrounding the trail network. Cells are square, anchored at the study
// area's minimum corner, and computed independently over the immutable graph.
package buffer

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/network"
	"github.com/trailgrade/trailgrade/internal/router"
	"github.com/trailgrade/trailgrade/internal/spatial"
)

const (
	// DefaultWidth is the half-width of the band around trail edges.
	DefaultWidth = 100.0

	// DefaultCellSize is the side length of a buffer cell.
	DefaultCellSize = 25.0

	// DefaultWorkers bounds the per-cell computation pool.
	DefaultWorkers = 4
)

// Config controls the buffer tiling. Zero values fall back to the defaults.
type Config struct {
	// Width is the band half-width around trail edges. Cells whose center
	// lies farther than Width from every trail edge are excluded.
	Width float64

	// CellSize is the square cell side length.
	CellSize float64

	// Workers is the number of goroutines computing cell difficulties.
	Workers int
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.CellSize <= 0 {
		c.CellSize = DefaultCellSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

// Cell is one tile of the difficulty surface. Row and Col index from the
// study area's minimum corner, so cell (0,0) has its lower-left corner
// exactly at that corner.
type Cell struct {
	Row       int
	Col       int
	Center    geo.Point
	TrailNode int
	// Difficulty is the weighted on-network cost to the nearest trail node
	// plus the weighted off-trail cost from that node into the cell. For
	// unreachable cells it degrades to straight-line cost from the start.
	Difficulty float64
	Reachable  bool
}

// Aggregator fills the buffer grid using a router's shortest-path tree. It
// only reads the network and may be shared across queries.
type Aggregator struct {
	net *network.Network
	rt  *router.Router
}

// New returns an aggregator over the given network and router. Both must
// refer to the same graph.
func New(net *network.Network, rt *router.Router) *Aggregator {
	return &Aggregator{net: net, rt: rt}
}

// Aggregate tiles the band of cfg.Width around every trail edge into cells
// of cfg.CellSize and computes a difficulty per cell, ordered by (row, col).
// One shortest-path pass from start is shared by all cells; the per-cell
// work runs on a bounded worker pool and stops early if ctx is cancelled.
func (a *Aggregator) Aggregate(ctx context.Context, start network.Location, startRaw geo.Point, w router.Weights, cfg Config) ([]Cell, error) {
	cfg = cfg.withDefaults()
	w = w.Normalized()

	cells := a.tile(cfg)
	if len(cells) == 0 {
		return nil, nil
	}

	paths := a.rt.ComputePaths(start)
	trails := a.trailNodeIndex()

	var (
		wg   sync.WaitGroup
		next = make(chan int)
	)
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				a.fill(&cells[i], paths, trails, startRaw, w)
			}
		}()
	}

	var err error
feed:
	for i := range cells {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case next <- i:
		}
	}
	close(next)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return cells, nil
}

// tile enumerates the cells whose center lies within cfg.Width of a trail
// edge. The grid is anchored at the study area's minimum corner; cells below
// or left of the anchor are discarded so identical inputs reproduce identical
// cell boundaries.
func (a *Aggregator) tile(cfg Config) []Cell {
	anchor := geo.Point{X: a.net.Area.MinX, Y: a.net.Area.MinY}
	s := cfg.CellSize

	type key struct{ row, col int }
	marked := make(map[key]geo.Point)

	for _, e := range a.net.Edges {
		if e.Kind != network.KindTrail {
			continue
		}
		p, q := a.net.Nodes[e.From].Pt, a.net.Nodes[e.To].Pt

		c0 := int(math.Floor((math.Min(p.X, q.X) - cfg.Width - anchor.X) / s))
		c1 := int(math.Floor((math.Max(p.X, q.X) + cfg.Width - anchor.X) / s))
		r0 := int(math.Floor((math.Min(p.Y, q.Y) - cfg.Width - anchor.Y) / s))
		r1 := int(math.Floor((math.Max(p.Y, q.Y) + cfg.Width - anchor.Y) / s))
		c0 = max(c0, 0)
		r0 = max(r0, 0)

		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				k := key{row, col}
				if _, ok := marked[k]; ok {
					continue
				}
				center := geo.Point{
					X: anchor.X + (float64(col)+0.5)*s,
					Y: anchor.Y + (float64(row)+0.5)*s,
				}
				if geo.DistToSegment(center, p, q) <= cfg.Width {
					marked[k] = center
				}
			}
		}
	}

	cells := make([]Cell, 0, len(marked))
	for k, center := range marked {
		cells = append(cells, Cell{Row: k.row, Col: k.col, Center: center, TrailNode: -1})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
	return cells
}

// trailNodeIndex builds a point index over trail-kind nodes only, keyed by
// node id so equal-distance lookups resolve to the lowest id.
func (a *Aggregator) trailNodeIndex() *spatial.PointIndex {
	idx := spatial.NewPointIndex(0)
	for _, n := range a.net.Nodes {
		if n.Kind == network.KindTrail {
			idx.Insert(n.ID, n.Pt)
		}
	}
	return idx
}

func (a *Aggregator) fill(c *Cell, paths *router.Paths, trails *spatial.PointIndex, startRaw geo.Point, w router.Weights) {
	nb, ok := trails.Nearest(c.Center)
	if !ok {
		c.Difficulty = w.OffTrail * startRaw.Dist(c.Center)
		return
	}
	c.TrailNode = nb.ID

	cost := paths.CostTo(nb.ID)
	if math.IsInf(cost, 1) {
		c.Difficulty = w.OffTrail * startRaw.Dist(c.Center)
		return
	}
	c.Reachable = true
	c.Difficulty = w.OnTrail*cost + w.OffTrail*a.rt.OffNetworkCost(c.Center, nb.Dist)
}
