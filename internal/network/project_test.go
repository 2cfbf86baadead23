package network

import (
	"math"
	"testing"

	"github.com/trailgrade/trailgrade/internal/geo"
)

func TestProject_PointOnEdge(t *testing.T) {
	trails := []geo.Polyline{{{X: 10, Y: 10}, {X: 30, Y: 10}}}
	net, err := Build(buildConfig(Thresholds{}), trails, nil, flat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, ok := net.Project(geo.Point{X: 20, Y: 10})
	if !ok {
		t.Fatal("expected a projection")
	}
	if loc.OffDist != 0 {
		t.Errorf("point on an edge must project at zero off-network distance, got %f", loc.OffDist)
	}
	if loc.NodeID != -1 {
		t.Errorf("interior projection should not snap to a node, got node %d", loc.NodeID)
	}
	if loc.Pt != (geo.Point{X: 20, Y: 10}) {
		t.Errorf("expected projection at (20,10), got %v", loc.Pt)
	}
}

func TestProject_PerpendicularInterior(t *testing.T) {
	trails := []geo.Polyline{{{X: 0, Y: 10}, {X: 100, Y: 10}}}
	net, err := Build(buildConfig(Thresholds{}), trails, nil, flat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, _ := net.Project(geo.Point{X: 40, Y: 25})
	if loc.Pt != (geo.Point{X: 40, Y: 10}) {
		t.Errorf("expected perpendicular foot (40,10), got %v", loc.Pt)
	}
	if loc.OffDist != 15 {
		t.Errorf("expected off-network distance 15, got %f", loc.OffDist)
	}
	if math.Abs(loc.T-0.4) > 1e-12 {
		t.Errorf("expected parameter 0.4, got %f", loc.T)
	}
}

func TestProject_SnapsToNearestRoadNode(t *testing.T) {
	// Spec scenario: start at (0,0), nearest road node at (0,5).
	roads := []geo.Polyline{{{X: 0, Y: 5}, {X: 0, Y: 10}}}
	net, err := Build(buildConfig(Thresholds{}), nil, roads, flat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, _ := net.Project(geo.Point{X: 0, Y: 0})
	if loc.OffDist != 5 {
		t.Errorf("expected off-network distance 5, got %f", loc.OffDist)
	}
	if loc.NodeID < 0 {
		t.Fatal("projection clamped to a segment end must snap to the node")
	}
	if net.Nodes[loc.NodeID].Pt != (geo.Point{X: 0, Y: 5}) {
		t.Errorf("expected snap to road node (0,5), got %v", net.Nodes[loc.NodeID].Pt)
	}
	if net.Nodes[loc.NodeID].Kind != KindRoad {
		t.Errorf("expected a road node, got %s", net.Nodes[loc.NodeID].Kind)
	}
}

func TestProject_PicksNearestOfSeveralEdges(t *testing.T) {
	trails := []geo.Polyline{
		{{X: 0, Y: 0}, {X: 100, Y: 0}},
		{{X: 0, Y: 50}, {X: 100, Y: 50}},
	}
	net, err := Build(buildConfig(Thresholds{}), trails, nil, flat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, _ := net.Project(geo.Point{X: 50, Y: 40})
	if loc.Pt.Y != 50 {
		t.Errorf("expected projection onto the closer trail at y=50, got %v", loc.Pt)
	}
	if loc.OffDist != 10 {
		t.Errorf("expected off-network distance 10, got %f", loc.OffDist)
	}
}

func TestProject_ComponentPropagated(t *testing.T) {
	trails := []geo.Polyline{
		{{X: 0, Y: 0}, {X: 10, Y: 0}},
		{{X: 500, Y: 500}, {X: 510, Y: 500}},
	}
	net, err := Build(buildConfig(Thresholds{}), trails, nil, flat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	near, _ := net.Project(geo.Point{X: 5, Y: 1})
	far, _ := net.Project(geo.Point{X: 505, Y: 499})
	if near.Component == far.Component {
		t.Error("projections onto disjoint trails should report different components")
	}
}
