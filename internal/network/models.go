// Package network builds a traversable weighted graph from trail and road
// vector geometry, connects nearby disjoint components with synthetic
// connector edges, and snaps arbitrary coordinates onto the graph.
package network

import (
	"errors"

	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/spatial"
)

// Build errors.
var (
	// ErrEmptyInput indicates no trail or road geometry was provided
	// (or none survived clipping to the study area).
	ErrEmptyInput = errors.New("no trail or road geometry to build from")

	// ErrOutOfBounds indicates the study area does not intersect the slope
	// raster extent. The build is aborted, not degraded.
	ErrOutOfBounds = errors.New("study area outside raster extent")
)

// Kind tags a node or edge as trail, road or synthetic connector.
type Kind string

const (
	KindTrail     Kind = "trail"
	KindRoad      Kind = "road"
	KindConnector Kind = "connector"
)

// Node is a graph vertex at a geometry vertex or merge point.
type Node struct {
	ID   int
	Pt   geo.Point
	Kind Kind
}

// Edge is an undirected graph edge with identical cost in both directions.
// Cost embeds the slope weighting; Length is the raw Euclidean length.
type Edge struct {
	ID     int
	From   int
	To     int
	Kind   Kind
	Length float64
	Cost   float64
}

// Thresholds are the maximum connection distances applied at build time.
type Thresholds struct {
	// TrailTrail is the maximum distance for connecting two trail nodes in
	// different components.
	TrailTrail float64

	// TrailRoad is the maximum distance for connecting a trail node to a
	// road node in a different component.
	TrailRoad float64
}

// SlopeSampler provides slope values for edge cost computation.
// *raster.Grid satisfies it.
type SlopeSampler interface {
	// Sample returns the slope magnitude at p.
	Sample(p geo.Point) (float64, error)

	// SampleLine returns the aggregate absolute slope along a-b sampled at
	// the given interval.
	SampleLine(a, b geo.Point, interval float64) (float64, error)

	// Extent returns the raster's georeferenced bounding box.
	Extent() geo.BBox
}

// Network is the built graph. It is immutable after Build; the router and
// aggregator only read it.
type Network struct {
	Area  geo.BBox
	CRS   string
	Nodes []Node
	Edges []Edge

	// adjacency[n] lists edge ids incident to node n, in insertion order.
	adjacency [][]int

	// component[n] is the connected-component id of node n after the
	// connector passes.
	component []int

	nodeIndex *spatial.PointIndex
	edgeIndex *spatial.SegmentIndex
}

// Adjacent returns the ids of edges incident to node id, in edge insertion
// order. The slice must not be mutated.
func (n *Network) Adjacent(id int) []int {
	return n.adjacency[id]
}

// Component returns the connected-component id of node id.
func (n *Network) Component(id int) int {
	return n.component[id]
}

// SameComponent reports whether two nodes are connected through the graph.
func (n *Network) SameComponent(a, b int) bool {
	return n.component[a] == n.component[b]
}

// Other returns the node on the far side of edge e from node id.
func (e Edge) Other(id int) int {
	if e.From == id {
		return e.To
	}
	return e.From
}

// NearestNode returns the node closest to p.
func (n *Network) NearestNode(p geo.Point) (spatial.Neighbor, bool) {
	return n.nodeIndex.Nearest(p)
}

// NodesWithin returns all node ids within radius r of p, nearest first.
func (n *Network) NodesWithin(p geo.Point, r float64) []spatial.Neighbor {
	return n.nodeIndex.Within(p, r)
}

// EdgesWithin returns all edge ids within radius r of p, nearest first.
func (n *Network) EdgesWithin(p geo.Point, r float64) []spatial.Neighbor {
	return n.edgeIndex.Within(p, r)
}
