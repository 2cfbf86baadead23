package buffer

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/network"
	"github.com/trailgrade/trailgrade/internal/router"
)

// flatSampler is a constant-slope sampler covering a fixed extent.
type flatSampler struct {
	extent geo.BBox
	slope  float64
}

func (s flatSampler) Sample(p geo.Point) (float64, error) {
	if !s.extent.Contains(p) {
		return 0, errors.New("outside extent")
	}
	return s.slope, nil
}

func (s flatSampler) SampleLine(a, b geo.Point, _ float64) (float64, error) {
	if !s.extent.Contains(a) || !s.extent.Contains(b) {
		return 0, errors.New("outside extent")
	}
	return math.Abs(s.slope), nil
}

func (s flatSampler) Extent() geo.BBox {
	return s.extent
}

var testArea = geo.BBox{MinX: 100, MinY: 100, MaxX: 500, MaxY: 500}

func flat() flatSampler {
	return flatSampler{extent: geo.BBox{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000}, slope: 0}
}

func buildAggregator(t *testing.T, trails, roads []geo.Polyline, slopes network.SlopeSampler) (*network.Network, *Aggregator) {
	t.Helper()
	net, err := network.Build(network.BuildConfig{
		Area:       testArea,
		CRS:        "EPSG:32633",
		Thresholds: network.Thresholds{TrailTrail: 5, TrailRoad: 5},
	}, trails, roads, slopes)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return net, New(net, router.New(net, slopes, 0))
}

func startAt(t *testing.T, net *network.Network, p geo.Point) network.Location {
	t.Helper()
	loc, ok := net.Project(p)
	if !ok {
		t.Fatalf("Project(%v) found no network", p)
	}
	return loc
}

func approx(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAggregate_AnchorAtAreaMinCorner(t *testing.T) {
	trail := geo.Polyline{{X: 100, Y: 100}, {X: 140, Y: 100}}
	net, agg := buildAggregator(t, []geo.Polyline{trail}, nil, flat())

	start := startAt(t, net, geo.Point{X: 100, Y: 100})
	cells, err := agg.Aggregate(context.Background(), start, geo.Point{X: 100, Y: 100},
		router.Weights{OnTrail: 1, OffTrail: 1}, Config{Width: 20, CellSize: 5})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(cells) == 0 {
		t.Fatal("no cells")
	}

	first := cells[0]
	if first.Row != 0 || first.Col != 0 {
		t.Fatalf("first cell at (%d,%d), want (0,0)", first.Row, first.Col)
	}
	// Lower-left corner of cell (0,0) is exactly the area's minimum corner.
	approx(t, first.Center.X-2.5, 100)
	approx(t, first.Center.Y-2.5, 100)
}

func TestAggregate_CellsWithinBandOrdered(t *testing.T) {
	trail := geo.Polyline{{X: 150, Y: 150}, {X: 250, Y: 150}}
	net, agg := buildAggregator(t, []geo.Polyline{trail}, nil, flat())

	start := startAt(t, net, geo.Point{X: 150, Y: 150})
	cells, err := agg.Aggregate(context.Background(), start, geo.Point{X: 150, Y: 150},
		router.Weights{OnTrail: 1, OffTrail: 1}, Config{Width: 20, CellSize: 10})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	a, b := geo.Point{X: 150, Y: 150}, geo.Point{X: 250, Y: 150}
	for i, c := range cells {
		if d := geo.DistToSegment(c.Center, a, b); d > 20 {
			t.Fatalf("cell (%d,%d) center %v is %v from the trail, want <= 20", c.Row, c.Col, c.Center, d)
		}
		if i == 0 {
			continue
		}
		prev := cells[i-1]
		if c.Row < prev.Row || (c.Row == prev.Row && c.Col <= prev.Col) {
			t.Fatalf("cells out of (row, col) order at %d: (%d,%d) after (%d,%d)",
				i, c.Row, c.Col, prev.Row, prev.Col)
		}
	}
}

func TestAggregate_FlatRasterCellDifficulty(t *testing.T) {
	trail := geo.Polyline{{X: 100, Y: 100}, {X: 110, Y: 100}}
	net, agg := buildAggregator(t, []geo.Polyline{trail}, nil, flat())

	start := startAt(t, net, geo.Point{X: 100, Y: 100})
	cells, err := agg.Aggregate(context.Background(), start, geo.Point{X: 100, Y: 100},
		router.Weights{OnTrail: 1, OffTrail: 1}, Config{Width: 20, CellSize: 5})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	// Cell (0,0): nearest trail node is the start node itself, so the whole
	// difficulty is the off-trail leg from that node to the cell center.
	first := cells[0]
	if !first.Reachable {
		t.Fatal("first cell not reachable")
	}
	approx(t, first.Difficulty, math.Hypot(2.5, 2.5))
}

func TestAggregate_OnNetworkWeightApplied(t *testing.T) {
	trail := geo.Polyline{{X: 100, Y: 100}, {X: 110, Y: 100}}
	net, agg := buildAggregator(t, []geo.Polyline{trail}, nil, flat())

	start := startAt(t, net, geo.Point{X: 100, Y: 100})
	cells, err := agg.Aggregate(context.Background(), start, geo.Point{X: 100, Y: 100},
		router.Weights{OnTrail: 2, OffTrail: 1}, Config{Width: 5, CellSize: 5})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	// Find the cell whose nearest trail node is the far endpoint: on-network
	// cost 10 doubles under OnTrail=2, the off leg keeps weight 1.
	far := -1
	for i, c := range cells {
		if c.TrailNode >= 0 && net.Nodes[c.TrailNode].Pt == (geo.Point{X: 110, Y: 100}) {
			far = i
			break
		}
	}
	if far < 0 {
		t.Fatal("no cell snapped to the far trail node")
	}
	c := cells[far]
	off := c.Center.Dist(geo.Point{X: 110, Y: 100})
	approx(t, c.Difficulty, 2*10+off)
}

func TestAggregate_UnreachableFallback(t *testing.T) {
	near := geo.Polyline{{X: 100, Y: 100}, {X: 110, Y: 100}}
	far := geo.Polyline{{X: 300, Y: 300}, {X: 310, Y: 300}}
	net, agg := buildAggregator(t, []geo.Polyline{near, far}, nil, flat())

	startRaw := geo.Point{X: 100, Y: 100}
	start := startAt(t, net, startRaw)
	cells, err := agg.Aggregate(context.Background(), start, startRaw,
		router.Weights{OnTrail: 1, OffTrail: 3}, Config{Width: 5, CellSize: 5})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	sawFallback := false
	for _, c := range cells {
		if c.TrailNode < 0 || net.SameComponent(c.TrailNode, start.NodeID) {
			continue
		}
		sawFallback = true
		if c.Reachable {
			t.Fatalf("cell (%d,%d) in detached component marked reachable", c.Row, c.Col)
		}
		approx(t, c.Difficulty, 3*startRaw.Dist(c.Center))
	}
	if !sawFallback {
		t.Fatal("no cell landed in the detached component")
	}
}

func TestAggregate_RoadsProduceNoCells(t *testing.T) {
	road := geo.Polyline{{X: 150, Y: 150}, {X: 250, Y: 150}}
	net, agg := buildAggregator(t, nil, []geo.Polyline{road}, flat())

	start := startAt(t, net, geo.Point{X: 150, Y: 150})
	cells, err := agg.Aggregate(context.Background(), start, geo.Point{X: 150, Y: 150},
		router.Weights{OnTrail: 1, OffTrail: 1}, Config{Width: 20, CellSize: 5})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(cells) != 0 {
		t.Fatalf("got %d cells around road-only network, want 0", len(cells))
	}
}

func TestAggregate_SlopeAdjustsOffTrailLeg(t *testing.T) {
	trail := geo.Polyline{{X: 100, Y: 100}, {X: 110, Y: 100}}
	steep := flatSampler{extent: flat().extent, slope: 30}
	net, err := network.Build(network.BuildConfig{
		Area:       testArea,
		CRS:        "EPSG:32633",
		Thresholds: network.Thresholds{TrailTrail: 5, TrailRoad: 5},
	}, []geo.Polyline{trail}, nil, steep)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	agg := New(net, router.New(net, steep, 0.01))

	start := startAt(t, net, geo.Point{X: 100, Y: 100})
	cells, aggErr := agg.Aggregate(context.Background(), start, geo.Point{X: 100, Y: 100},
		router.Weights{OnTrail: 1, OffTrail: 1}, Config{Width: 20, CellSize: 5})
	if aggErr != nil {
		t.Fatalf("Aggregate: %v", aggErr)
	}

	// Start node is cost 0, so cell (0,0) is the off-trail leg alone,
	// inflated by the slope sample at the cell center.
	first := cells[0]
	approx(t, first.Difficulty, math.Hypot(2.5, 2.5)*(1+0.01*30))
}

func TestAggregate_ContextCancelled(t *testing.T) {
	trail := geo.Polyline{{X: 150, Y: 150}, {X: 450, Y: 450}}
	net, agg := buildAggregator(t, []geo.Polyline{trail}, nil, flat())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := startAt(t, net, geo.Point{X: 150, Y: 150})
	_, err := agg.Aggregate(ctx, start, geo.Point{X: 150, Y: 150},
		router.Weights{OnTrail: 1, OffTrail: 1}, Config{Width: 50, CellSize: 2, Workers: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	trails := []geo.Polyline{
		{{X: 120, Y: 120}, {X: 180, Y: 140}, {X: 220, Y: 120}},
		{{X: 222, Y: 122}, {X: 280, Y: 180}},
	}
	net, agg := buildAggregator(t, trails, nil, flat())

	start := startAt(t, net, geo.Point{X: 120, Y: 120})
	run := func() []Cell {
		cells, err := agg.Aggregate(context.Background(), start, geo.Point{X: 120, Y: 120},
			router.Weights{OnTrail: 1, OffTrail: 2}, Config{Width: 30, CellSize: 10, Workers: 8})
		if err != nil {
			t.Fatalf("Aggregate: %v", err)
		}
		return cells
	}

	first := run()
	for range 3 {
		if again := run(); !reflect.DeepEqual(first, again) {
			t.Fatal("repeated aggregation produced different cells")
		}
	}
}
