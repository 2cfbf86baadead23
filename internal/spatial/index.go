// Package spatial provides grid-hash indexes for nearest-neighbor and radius
// queries over points and line segments. Queries are deterministic: equal
// distances are broken by the lowest inserted identifier.
package spatial

import (
	"math"
	"sort"

	"github.com/trailgrade/trailgrade/internal/geo"
)

// DefaultCellSize is the bucket size used when none is configured.
const DefaultCellSize = 50.0

// Neighbor is a query result: an indexed entity and its distance to the
// query point.
type Neighbor struct {
	ID   int
	Dist float64
}

type cellKey struct {
	cx int
	cy int
}

// PointIndex is a uniform-grid index over points. Insertion is dynamic:
// entries may be added between queries.
type PointIndex struct {
	cellSize float64
	cells    map[cellKey][]int
	points   map[int]geo.Point
}

// NewPointIndex creates a point index with the given bucket size.
// A size <= 0 uses DefaultCellSize.
func NewPointIndex(cellSize float64) *PointIndex {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &PointIndex{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int),
		points:   make(map[int]geo.Point),
	}
}

// Len returns the number of indexed points.
func (idx *PointIndex) Len() int {
	return len(idx.points)
}

// Insert adds a point under the given identifier. Inserting an existing
// identifier again is not supported and silently keeps the first entry.
func (idx *PointIndex) Insert(id int, p geo.Point) {
	if _, ok := idx.points[id]; ok {
		return
	}
	idx.points[id] = p
	key := idx.keyFor(p)
	idx.cells[key] = append(idx.cells[key], id)
}

// At returns the coordinate stored under id.
func (idx *PointIndex) At(id int) (geo.Point, bool) {
	p, ok := idx.points[id]
	return p, ok
}

// Nearest returns the indexed point closest to p. Reports false when the
// index is empty. Equal distances resolve to the lowest identifier.
func (idx *PointIndex) Nearest(p geo.Point) (Neighbor, bool) {
	if len(idx.points) == 0 {
		return Neighbor{}, false
	}

	center := idx.keyFor(p)
	best := Neighbor{ID: -1, Dist: math.Inf(1)}

	// Expand ring by ring. Once a candidate is found, one extra ring must be
	// scanned: a point in the next ring can still be closer than one found
	// diagonally in the current ring.
	maxRing := idx.maxRing(center)
	for ring := 0; ring <= maxRing; ring++ {
		if best.ID >= 0 && float64(ring-1)*idx.cellSize > best.Dist {
			break
		}
		idx.scanRing(center, ring, func(id int, q geo.Point) {
			d := p.Dist(q)
			if d < best.Dist || (d == best.Dist && id < best.ID) {
				best = Neighbor{ID: id, Dist: d}
			}
		})
	}

	return best, best.ID >= 0
}

// Within returns all indexed points within radius r of p, sorted by distance
// then identifier.
func (idx *PointIndex) Within(p geo.Point, r float64) []Neighbor {
	if r < 0 {
		return nil
	}

	var result []Neighbor
	minKey := idx.keyFor(geo.Point{X: p.X - r, Y: p.Y - r})
	maxKey := idx.keyFor(geo.Point{X: p.X + r, Y: p.Y + r})

	for cx := minKey.cx; cx <= maxKey.cx; cx++ {
		for cy := minKey.cy; cy <= maxKey.cy; cy++ {
			for _, id := range idx.cells[cellKey{cx, cy}] {
				d := p.Dist(idx.points[id])
				if d <= r {
					result = append(result, Neighbor{ID: id, Dist: d})
				}
			}
		}
	}

	sortNeighbors(result)
	return result
}

func (idx *PointIndex) keyFor(p geo.Point) cellKey {
	return cellKey{
		cx: int(math.Floor(p.X / idx.cellSize)),
		cy: int(math.Floor(p.Y / idx.cellSize)),
	}
}

// maxRing returns the ring count needed to cover every occupied cell from center.
func (idx *PointIndex) maxRing(center cellKey) int {
	max := 0
	for key := range idx.cells {
		dx := abs(key.cx - center.cx)
		dy := abs(key.cy - center.cy)
		if dx > max {
			max = dx
		}
		if dy > max {
			max = dy
		}
	}
	return max
}

// scanRing visits every point in cells at Chebyshev distance ring from center.
func (idx *PointIndex) scanRing(center cellKey, ring int, visit func(id int, p geo.Point)) {
	for cx := center.cx - ring; cx <= center.cx+ring; cx++ {
		for cy := center.cy - ring; cy <= center.cy+ring; cy++ {
			if abs(cx-center.cx) != ring && abs(cy-center.cy) != ring {
				continue
			}
			for _, id := range idx.cells[cellKey{cx, cy}] {
				visit(id, idx.points[id])
			}
		}
	}
}

// SegmentIndex is a uniform-grid index over line segments. A segment is
// registered in every cell overlapped by its bounding box.
type SegmentIndex struct {
	cellSize float64
	cells    map[cellKey][]int
	segments map[int][2]geo.Point
}

// NewSegmentIndex creates a segment index with the given bucket size.
// A size <= 0 uses DefaultCellSize.
func NewSegmentIndex(cellSize float64) *SegmentIndex {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &SegmentIndex{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int),
		segments: make(map[int][2]geo.Point),
	}
}

// Len returns the number of indexed segments.
func (idx *SegmentIndex) Len() int {
	return len(idx.segments)
}

// Insert adds segment a-b under the given identifier.
func (idx *SegmentIndex) Insert(id int, a, b geo.Point) {
	if _, ok := idx.segments[id]; ok {
		return
	}
	idx.segments[id] = [2]geo.Point{a, b}

	minKey := idx.keyFor(geo.Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)})
	maxKey := idx.keyFor(geo.Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)})
	for cx := minKey.cx; cx <= maxKey.cx; cx++ {
		for cy := minKey.cy; cy <= maxKey.cy; cy++ {
			key := cellKey{cx, cy}
			idx.cells[key] = append(idx.cells[key], id)
		}
	}
}

// Segment returns the endpoints stored under id.
func (idx *SegmentIndex) Segment(id int) ([2]geo.Point, bool) {
	s, ok := idx.segments[id]
	return s, ok
}

// Nearest returns the indexed segment closest to p (distance to the nearest
// point on the segment). Reports false when the index is empty.
func (idx *SegmentIndex) Nearest(p geo.Point) (Neighbor, bool) {
	if len(idx.segments) == 0 {
		return Neighbor{}, false
	}

	// Grow the search radius until a hit; then one final pass at the found
	// distance guarantees nothing closer was missed in an unscanned cell.
	r := idx.cellSize
	for {
		if hits := idx.Within(p, r); len(hits) > 0 {
			confirmed := idx.Within(p, hits[0].Dist)
			return confirmed[0], true
		}
		if r > idx.extentSpan() {
			return idx.nearestExhaustive(p)
		}
		r *= 2
	}
}

// Within returns all segments whose nearest point lies within radius r of p,
// sorted by distance then identifier.
func (idx *SegmentIndex) Within(p geo.Point, r float64) []Neighbor {
	if r < 0 {
		return nil
	}

	minKey := idx.keyFor(geo.Point{X: p.X - r, Y: p.Y - r})
	maxKey := idx.keyFor(geo.Point{X: p.X + r, Y: p.Y + r})

	seen := make(map[int]bool)
	var result []Neighbor
	for cx := minKey.cx; cx <= maxKey.cx; cx++ {
		for cy := minKey.cy; cy <= maxKey.cy; cy++ {
			for _, id := range idx.cells[cellKey{cx, cy}] {
				if seen[id] {
					continue
				}
				seen[id] = true
				seg := idx.segments[id]
				d := geo.DistToSegment(p, seg[0], seg[1])
				if d <= r {
					result = append(result, Neighbor{ID: id, Dist: d})
				}
			}
		}
	}

	sortNeighbors(result)
	return result
}

func (idx *SegmentIndex) keyFor(p geo.Point) cellKey {
	return cellKey{
		cx: int(math.Floor(p.X / idx.cellSize)),
		cy: int(math.Floor(p.Y / idx.cellSize)),
	}
}

// extentSpan returns a search radius large enough to cover all occupied cells.
func (idx *SegmentIndex) extentSpan() float64 {
	if len(idx.cells) == 0 {
		return 0
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for key := range idx.cells {
		minX = math.Min(minX, float64(key.cx))
		minY = math.Min(minY, float64(key.cy))
		maxX = math.Max(maxX, float64(key.cx))
		maxY = math.Max(maxY, float64(key.cy))
	}
	return ((maxX - minX) + (maxY - minY) + 2) * idx.cellSize
}

func (idx *SegmentIndex) nearestExhaustive(p geo.Point) (Neighbor, bool) {
	best := Neighbor{ID: -1, Dist: math.Inf(1)}
	for id, seg := range idx.segments {
		d := geo.DistToSegment(p, seg[0], seg[1])
		if d < best.Dist || (d == best.Dist && id < best.ID) {
			best = Neighbor{ID: id, Dist: d}
		}
	}
	return best, best.ID >= 0
}

func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Dist != ns[j].Dist {
			return ns[i].Dist < ns[j].Dist
		}
		return ns[i].ID < ns[j].ID
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
