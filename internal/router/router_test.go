package router

import (
	"errors"
	"math"
	"testing"

	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/network"
)

// flatSampler mirrors the builder test helper: constant slope over an extent.
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

var testArea = geo.BBox{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000}

func flatNet(t *testing.T, th network.Thresholds, trails, roads []geo.Polyline) *network.Network {
	t.Helper()
	net, err := network.Build(network.BuildConfig{
		Area:       testArea,
		CRS:        "EPSG:32632",
		Thresholds: th,
	}, trails, roads, flatSampler{extent: testArea})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return net
}

func startAt(t *testing.T, net *network.Network, p geo.Point) network.Location {
	t.Helper()
	loc, ok := net.Project(p)
	if !ok {
		t.Fatal("projection failed")
	}
	return loc
}

func TestRoute_FlatRasterReducesToPathLength(t *testing.T) {
	// y-shaped trail along x axis: nodes at 0, 10, 25, 40.
	net := flatNet(t, network.Thresholds{}, []geo.Polyline{
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 25, Y: 0}, {X: 40, Y: 0}},
	}, nil)
	r := New(net, flatSampler{extent: testArea}, 0)

	start := startAt(t, net, geo.Point{X: 0, Y: 0})
	results := r.Route(start, geo.Point{X: 0, Y: 0}, []StudyPoint{
		{Name: "end", Pt: geo.Point{X: 40, Y: 0}},
	}, Weights{OnTrail: 1, OffTrail: 1})

	res := results[0]
	if !res.Reachable {
		t.Fatal("target on the same trail must be reachable")
	}
	if res.OnNetworkDist != 40 {
		t.Errorf("expected path length 40, got %f", res.OnNetworkDist)
	}
	if res.OnNetworkCost != 40 {
		t.Errorf("flat raster: cost should equal length, got %f", res.OnNetworkCost)
	}
	if res.OffNetworkDist != 0 {
		t.Errorf("on-trail target should have zero off distance, got %f", res.OffNetworkDist)
	}
	if res.Difficulty != 40 {
		t.Errorf("unit weights over flat raster: difficulty 40, got %f", res.Difficulty)
	}
}

func TestRoute_OnTrailWeightScalesDifficulty(t *testing.T) {
	// Spec scenario: flat raster, target on a trail node 10 units of path
	// from the start, weight_on_trail = 2 -> difficulty 20.
	net := flatNet(t, network.Thresholds{}, []geo.Polyline{
		{{X: 0, Y: 0}, {X: 10, Y: 0}},
	}, nil)
	r := New(net, flatSampler{extent: testArea}, 0)

	start := startAt(t, net, geo.Point{X: 0, Y: 0})
	results := r.Route(start, geo.Point{X: 0, Y: 0}, []StudyPoint{
		{Pt: geo.Point{X: 10, Y: 0}},
	}, Weights{OnTrail: 2, OffTrail: 1})

	if results[0].Difficulty != 20 {
		t.Errorf("expected weighted difficulty 20, got %f", results[0].Difficulty)
	}
}

func TestRoute_PicksCheaperOfTwoPaths(t *testing.T) {
	// Two routes from (0,0) to (10,0): direct (length 10) and a detour
	// through (5,20) (length ~41). Dijkstra must take the direct one.
	net := flatNet(t, network.Thresholds{}, []geo.Polyline{
		{{X: 0, Y: 0}, {X: 10, Y: 0}},
		{{X: 0, Y: 0}, {X: 5, Y: 20}, {X: 10, Y: 0}},
	}, nil)
	r := New(net, flatSampler{extent: testArea}, 0)

	start := startAt(t, net, geo.Point{X: 0, Y: 0})
	results := r.Route(start, geo.Point{X: 0, Y: 0}, []StudyPoint{
		{Pt: geo.Point{X: 10, Y: 0}},
	}, Weights{OnTrail: 1, OffTrail: 1})

	if results[0].OnNetworkDist != 10 {
		t.Errorf("expected the direct path of length 10, got %f", results[0].OnNetworkDist)
	}
}

func TestRoute_EdgeInteriorStartAndTarget(t *testing.T) {
	net := flatNet(t, network.Thresholds{}, []geo.Polyline{
		{{X: 0, Y: 0}, {X: 100, Y: 0}},
	}, nil)
	r := New(net, flatSampler{extent: testArea}, 0)

	// Start projects to (20,0) inside the single edge; target to (70,0).
	start := startAt(t, net, geo.Point{X: 20, Y: 5})
	results := r.Route(start, geo.Point{X: 20, Y: 5}, []StudyPoint{
		{Pt: geo.Point{X: 70, Y: 0}},
	}, Weights{OnTrail: 1, OffTrail: 1})

	res := results[0]
	if math.Abs(res.OnNetworkDist-50) > 1e-9 {
		t.Errorf("expected 50 units along the edge, got %f", res.OnNetworkDist)
	}
	if res.OffNetworkDist != 0 {
		t.Errorf("target on the edge: zero off distance, got %f", res.OffNetworkDist)
	}
}

func TestRoute_OffNetworkComponent(t *testing.T) {
	net := flatNet(t, network.Thresholds{}, []geo.Polyline{
		{{X: 0, Y: 0}, {X: 10, Y: 0}},
	}, nil)
	r := New(net, flatSampler{extent: testArea}, 0)

	start := startAt(t, net, geo.Point{X: 0, Y: 0})
	results := r.Route(start, geo.Point{X: 0, Y: 0}, []StudyPoint{
		{Pt: geo.Point{X: 10, Y: 8}}, // 8 off the trail end
	}, Weights{OnTrail: 1, OffTrail: 3})

	res := results[0]
	if res.OffNetworkDist != 8 {
		t.Errorf("expected off-network distance 8, got %f", res.OffNetworkDist)
	}
	// Flat raster: difficulty = 1*10 + 3*8.
	if res.Difficulty != 34 {
		t.Errorf("expected difficulty 34, got %f", res.Difficulty)
	}
}

func TestRoute_UnreachableFallsBackToStraightLine(t *testing.T) {
	// Two disjoint trails; start on the first, target on the second.
	net := flatNet(t, network.Thresholds{}, []geo.Polyline{
		{{X: 0, Y: 0}, {X: 10, Y: 0}},
		{{X: 500, Y: 0}, {X: 510, Y: 0}},
	}, nil)
	r := New(net, flatSampler{extent: testArea}, 0)

	start := startAt(t, net, geo.Point{X: 0, Y: 0})
	results := r.Route(start, geo.Point{X: 0, Y: 0}, []StudyPoint{
		{Pt: geo.Point{X: 500, Y: 0}},
	}, Weights{OnTrail: 1, OffTrail: 2})

	res := results[0]
	if res.Reachable {
		t.Fatal("target in a different component must be unreachable")
	}
	if !math.IsInf(res.OnNetworkDist, 1) || !math.IsInf(res.OnNetworkCost, 1) {
		t.Error("on-network metrics must report the unreachable sentinel")
	}
	// Fallback: w_off * straight-line from the raw start coordinate.
	if res.Difficulty != 1000 {
		t.Errorf("expected fallback difficulty 1000, got %f", res.Difficulty)
	}
}

func TestRoute_SlopeAdjustsOffNetworkCost(t *testing.T) {
	trails := []geo.Polyline{{{X: 0, Y: 0}, {X: 10, Y: 0}}}

	flat := New(flatNet(t, network.Thresholds{}, trails, nil), flatSampler{extent: testArea, slope: 0}, 0.01)
	steepNet := flatNet(t, network.Thresholds{}, trails, nil)
	steep := New(steepNet, flatSampler{extent: testArea, slope: 50}, 0.01)

	target := []StudyPoint{{Pt: geo.Point{X: 10, Y: 8}}}
	w := Weights{OnTrail: 1, OffTrail: 1}

	flatRes := flat.Route(startAt(t, flat.net, geo.Point{X: 0, Y: 0}), geo.Point{X: 0, Y: 0}, target, w)
	steepRes := steep.Route(startAt(t, steepNet, geo.Point{X: 0, Y: 0}), geo.Point{X: 0, Y: 0}, target, w)

	if steepRes[0].Difficulty <= flatRes[0].Difficulty {
		t.Errorf("slope must increase off-network cost: %f vs %f",
			steepRes[0].Difficulty, flatRes[0].Difficulty)
	}
}

func TestRoute_OrderPreserving(t *testing.T) {
	net := flatNet(t, network.Thresholds{}, []geo.Polyline{
		{{X: 0, Y: 0}, {X: 100, Y: 0}},
	}, nil)
	r := New(net, flatSampler{extent: testArea}, 0)

	targets := []StudyPoint{
		{Name: "far", Pt: geo.Point{X: 90, Y: 0}},
		{Name: "near", Pt: geo.Point{X: 10, Y: 0}},
		{Name: "mid", Pt: geo.Point{X: 50, Y: 0}},
	}
	start := startAt(t, net, geo.Point{X: 0, Y: 0})
	results := r.Route(start, geo.Point{X: 0, Y: 0}, targets, Weights{OnTrail: 1, OffTrail: 1})

	for i, res := range results {
		if res.Name != targets[i].Name {
			t.Errorf("result %d out of order: got %q, want %q", i, res.Name, targets[i].Name)
		}
	}
}

func TestRoute_DeterministicAcrossRuns(t *testing.T) {
	// A square of equal-cost edges gives two equal shortest paths to the
	// opposite corner; the reported cost must be identical across runs.
	net := flatNet(t, network.Thresholds{}, []geo.Polyline{
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}},
		{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}},
	}, nil)
	r := New(net, flatSampler{extent: testArea}, 0)

	start := startAt(t, net, geo.Point{X: 0, Y: 0})
	target := []StudyPoint{{Pt: geo.Point{X: 10, Y: 10}}}
	w := Weights{OnTrail: 1, OffTrail: 1}

	first := r.Route(start, geo.Point{X: 0, Y: 0}, target, w)
	second := r.Route(start, geo.Point{X: 0, Y: 0}, target, w)

	if first[0] != second[0] {
		t.Errorf("results differ between runs: %+v vs %+v", first[0], second[0])
	}
	if first[0].OnNetworkDist != 20 {
		t.Errorf("expected cost 20 over either equal path, got %f", first[0].OnNetworkDist)
	}
}

func TestComputePaths_SeedsBothEndpointsFromInterior(t *testing.T) {
	net := flatNet(t, network.Thresholds{}, []geo.Polyline{
		{{X: 0, Y: 0}, {X: 100, Y: 0}},
	}, nil)
	r := New(net, flatSampler{extent: testArea}, 0)

	loc := startAt(t, net, geo.Point{X: 30, Y: 10})
	paths := r.ComputePaths(loc)

	if math.Abs(paths.CostTo(0)-30) > 1e-9 {
		t.Errorf("expected cost 30 to the From node, got %f", paths.CostTo(0))
	}
	if math.Abs(paths.CostTo(1)-70) > 1e-9 {
		t.Errorf("expected cost 70 to the To node, got %f", paths.CostTo(1))
	}
}

func TestWeights_NonPositiveDefaultsToOne(t *testing.T) {
	w := Weights{}.Normalized()
	if w.OnTrail != 1 || w.OffTrail != 1 {
		t.Errorf("expected unit weights, got %+v", w)
	}
}
