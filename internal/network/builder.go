package network

import (
	"math"

	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/spatial"
)

// Build defaults.
const (
	// DefaultMergeTolerance is the distance under which two geometry
	// vertices collapse into one node.
	DefaultMergeTolerance = 0.2

	// DefaultSlopeGain converts mean absolute slope into the cost inflation
	// factor: cost = length * (1 + gain * meanAbsSlope).
	DefaultSlopeGain = 0.01

	// DefaultMaxConnectorPasses bounds the component-merging fixpoint loop.
	DefaultMaxConnectorPasses = 8
)

// BuildConfig holds the inputs of a network build besides the geometry.
type BuildConfig struct {
	// Area is the study area. Trails are clipped to it; roads are not.
	Area geo.BBox

	// CRS is the coordinate reference system shared by all inputs.
	CRS string

	// Thresholds are the connector distances.
	Thresholds Thresholds

	// MergeTolerance collapses vertices closer than this into one node.
	// Default: DefaultMergeTolerance.
	MergeTolerance float64

	// SampleInterval is the along-edge slope sampling step.
	// Zero uses the sampler's default.
	SampleInterval float64

	// SlopeGain scales how slope inflates edge cost.
	// Default: DefaultSlopeGain.
	SlopeGain float64

	// MaxConnectorPasses bounds the connector fixpoint loop.
	// Default: DefaultMaxConnectorPasses.
	MaxConnectorPasses int

	// IndexCellSize is the spatial index bucket size.
	// Default: spatial.DefaultCellSize.
	IndexCellSize float64
}

// builder accumulates build state. It is discarded once Build returns; the
// resulting Network is immutable.
type builder struct {
	cfg       BuildConfig
	slopes    SlopeSampler
	nodes     []Node
	edges     []Edge
	adjacency [][]int
	nodeIndex *spatial.PointIndex
	edgeIndex *spatial.SegmentIndex
	edgeSeen  map[[2]int]bool
}

// Build constructs the network from trail and road polylines. Trails are
// clipped to the study area first; roads outside the area are kept. The
// build is all-or-nothing: on error no partial graph is returned.
func Build(cfg BuildConfig, trails, roads []geo.Polyline, slopes SlopeSampler) (*Network, error) {
	if cfg.MergeTolerance <= 0 {
		cfg.MergeTolerance = DefaultMergeTolerance
	}
	if cfg.SlopeGain <= 0 {
		cfg.SlopeGain = DefaultSlopeGain
	}
	if cfg.MaxConnectorPasses <= 0 {
		cfg.MaxConnectorPasses = DefaultMaxConnectorPasses
	}
	if cfg.IndexCellSize <= 0 {
		cfg.IndexCellSize = spatial.DefaultCellSize
	}

	if len(trails) == 0 && len(roads) == 0 {
		return nil, ErrEmptyInput
	}
	if slopes != nil && !cfg.Area.Intersects(slopes.Extent()) {
		return nil, ErrOutOfBounds
	}

	b := &builder{
		cfg:       cfg,
		slopes:    slopes,
		nodeIndex: spatial.NewPointIndex(cfg.IndexCellSize),
		edgeIndex: spatial.NewSegmentIndex(cfg.IndexCellSize),
		edgeSeen:  make(map[[2]int]bool),
	}

	for _, trail := range trails {
		for _, clipped := range geo.ClipToBox(trail, cfg.Area) {
			b.addPolyline(clipped, KindTrail)
		}
	}
	for _, road := range roads {
		b.addPolyline(road, KindRoad)
	}

	if len(b.edges) == 0 {
		return nil, ErrEmptyInput
	}

	uf := newUnionFind(len(b.nodes))
	for _, e := range b.edges {
		uf.union(e.From, e.To)
	}
	b.connectComponents(uf)

	return &Network{
		Area:      cfg.Area,
		CRS:       cfg.CRS,
		Nodes:     b.nodes,
		Edges:     b.edges,
		adjacency: b.adjacency,
		component: compactComponents(uf, len(b.nodes)),
		nodeIndex: b.nodeIndex,
		edgeIndex: b.edgeIndex,
	}, nil
}

// addPolyline discretizes one polyline into nodes and edges.
func (b *builder) addPolyline(line geo.Polyline, kind Kind) {
	if len(line) < 2 {
		return
	}

	prev := b.nodeFor(line[0], kind)
	for i := 1; i < len(line); i++ {
		cur := b.nodeFor(line[i], kind)
		// Zero-length segments (including vertices merged into one node)
		// are dropped.
		if cur == prev {
			continue
		}
		b.addEdge(prev, cur, kind)
		prev = cur
	}
}

// nodeFor returns the id of an existing node within the merge tolerance of
// p, or creates a new one. The nearest existing node wins; an existing
// node's kind is never overwritten.
func (b *builder) nodeFor(p geo.Point, kind Kind) int {
	if near := b.nodeIndex.Within(p, b.cfg.MergeTolerance); len(near) > 0 {
		return near[0].ID
	}
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{ID: id, Pt: p, Kind: kind})
	b.adjacency = append(b.adjacency, nil)
	b.nodeIndex.Insert(id, p)
	return id
}

// addEdge creates an undirected edge between two nodes. Duplicate edges
// between the same node pair are dropped.
func (b *builder) addEdge(from, to int, kind Kind) {
	key := edgeKey(from, to)
	if b.edgeSeen[key] {
		return
	}
	b.edgeSeen[key] = true

	a, c := b.nodes[from].Pt, b.nodes[to].Pt
	length := a.Dist(c)
	cost := length
	if kind != KindConnector {
		cost = length * (1 + b.cfg.SlopeGain*b.lineSlope(a, c))
	}

	id := len(b.edges)
	b.edges = append(b.edges, Edge{
		ID:     id,
		From:   from,
		To:     to,
		Kind:   kind,
		Length: length,
		Cost:   cost,
	})
	b.adjacency[from] = append(b.adjacency[from], id)
	b.adjacency[to] = append(b.adjacency[to], id)
	b.edgeIndex.Insert(id, a, c)
}

// lineSlope samples the mean absolute slope along a segment. Sampling
// failures (nodata stretches, road segments outside the raster extent)
// leave the edge at neutral slope.
func (b *builder) lineSlope(a, c geo.Point) float64 {
	if b.slopes == nil {
		return 0
	}
	mean, err := b.slopes.SampleLine(a, c, b.cfg.SampleInterval)
	if err != nil {
		return 0
	}
	return mean
}

// connectComponents runs threshold-connection passes until no two components
// can be merged, capped at MaxConnectorPasses. Connector edges carry cost
// equal to their straight-line length: an assumed easy crossing.
func (b *builder) connectComponents(uf *unionFind) {
	maxDist := math.Max(b.cfg.Thresholds.TrailTrail, b.cfg.Thresholds.TrailRoad)
	if maxDist <= 0 {
		return
	}

	for pass := 0; pass < b.cfg.MaxConnectorPasses; pass++ {
		added := false
		for id := range b.nodes {
			for _, nb := range b.nodeIndex.Within(b.nodes[id].Pt, maxDist) {
				if nb.ID == id || uf.find(id) == uf.find(nb.ID) {
					continue
				}
				if !b.connectable(b.nodes[id].Kind, b.nodes[nb.ID].Kind, nb.Dist) {
					continue
				}
				b.addEdge(id, nb.ID, KindConnector)
				uf.union(id, nb.ID)
				added = true
			}
		}
		if !added {
			return
		}
	}
}

// connectable applies the kind-pair thresholds: trail-trail and trail-road
// connections only; roads never bridge to roads.
func (b *builder) connectable(a, c Kind, dist float64) bool {
	switch {
	case a == KindTrail && c == KindTrail:
		return dist <= b.cfg.Thresholds.TrailTrail
	case (a == KindTrail && c == KindRoad) || (a == KindRoad && c == KindTrail):
		return dist <= b.cfg.Thresholds.TrailRoad
	}
	return false
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// compactComponents maps union-find roots to dense component ids, assigned
// in node id order so results are deterministic.
func compactComponents(uf *unionFind, n int) []int {
	comp := make([]int, n)
	label := make(map[int]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		id, ok := label[root]
		if !ok {
			id = len(label)
			label[root] = id
		}
		comp[i] = id
	}
	return comp
}
