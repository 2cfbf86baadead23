// Package router computes weighted shortest-path difficulty over a built
// network. A single multi-target Dijkstra pass per projected start serves
// any number of study points.
package router

import (
	"container/heap"
	"math"

	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/network"
)

// Unreachable is the sentinel reported as on-network distance and cost for
// targets in a different connected component than the start. It is a defined
// degraded result, not an error.
var Unreachable = math.Inf(1)

// Weights multiply the on-network and off-network cost components at
// aggregation time. Stored edge costs are never mutated.
type Weights struct {
	OnTrail  float64
	OffTrail float64
}

// Normalized returns the weights with non-positive components reset to 1.
func (w Weights) Normalized() Weights {
	if w.OnTrail <= 0 {
		w.OnTrail = 1
	}
	if w.OffTrail <= 0 {
		w.OffTrail = 1
	}
	return w
}

// StudyPoint is a named or anonymous target coordinate.
type StudyPoint struct {
	Name string
	Pt   geo.Point
}

// Result is the per-target difficulty breakdown.
type Result struct {
	Name string
	Pt   geo.Point

	// OnNetworkDist is the raw path length from the projected start to the
	// target's network location; Unreachable when in another component.
	OnNetworkDist float64

	// OnNetworkCost is the slope-weighted path cost; Unreachable when in
	// another component.
	OnNetworkCost float64

	// OffNetworkDist is the Euclidean distance from the target to its
	// network location.
	OffNetworkDist float64

	// Difficulty is the combined weighted score.
	Difficulty float64

	// Reachable is false when the target's component differs from the
	// start's; Difficulty then falls back to straight-line off-network cost
	// from the raw start coordinate.
	Reachable bool
}

// Router answers difficulty queries against one immutable network.
type Router struct {
	net       *network.Network
	slopes    network.SlopeSampler
	slopeGain float64
}

// New creates a router. The sampler may be nil, in which case off-network
// costs are not slope-adjusted. A slopeGain <= 0 uses the builder default.
func New(net *network.Network, slopes network.SlopeSampler, slopeGain float64) *Router {
	if slopeGain <= 0 {
		slopeGain = network.DefaultSlopeGain
	}
	return &Router{net: net, slopes: slopes, slopeGain: slopeGain}
}

// Paths holds the result of one Dijkstra pass: per-node accumulated edge
// cost and raw length from a projected start.
type Paths struct {
	start  network.Location
	cost   []float64
	length []float64
}

// CostTo returns the slope-weighted cost to reach node id, or Unreachable.
func (p *Paths) CostTo(id int) float64 {
	return p.cost[id]
}

// LengthTo returns the raw path length to reach node id, or Unreachable.
func (p *Paths) LengthTo(id int) float64 {
	return p.length[id]
}

// heapItem is a pending node in the priority queue. Stale entries are
// skipped on pop (lazy decrease-key).
type heapItem struct {
	node int
	cost float64
}

// minHeap orders by cost, then node id for deterministic expansion among
// equal-cost paths.
type minHeap []heapItem

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].node < h[j].node
}
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any) { *h = append(*h, x.(heapItem)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// ComputePaths runs a single-source Dijkstra from the projected start. An
// edge-interior start seeds both endpoints with the partial edge cost.
func (r *Router) ComputePaths(start network.Location) *Paths {
	n := len(r.net.Nodes)
	p := &Paths{
		start:  start,
		cost:   make([]float64, n),
		length: make([]float64, n),
	}
	for i := range p.cost {
		p.cost[i] = Unreachable
		p.length[i] = Unreachable
	}

	h := &minHeap{}
	seed := func(node int, cost, length float64) {
		if cost < p.cost[node] {
			p.cost[node] = cost
			p.length[node] = length
			heap.Push(h, heapItem{node: node, cost: cost})
		}
	}

	if start.NodeID >= 0 {
		seed(start.NodeID, 0, 0)
	} else {
		edge := r.net.Edges[start.EdgeID]
		seed(edge.From, edge.Cost*start.T, edge.Length*start.T)
		seed(edge.To, edge.Cost*(1-start.T), edge.Length*(1-start.T))
	}

	for h.Len() > 0 {
		item := heap.Pop(h).(heapItem)
		if item.cost > p.cost[item.node] {
			continue // stale entry
		}
		for _, edgeID := range r.net.Adjacent(item.node) {
			edge := r.net.Edges[edgeID]
			next := edge.Other(item.node)
			nextCost := item.cost + edge.Cost
			if nextCost < p.cost[next] {
				p.cost[next] = nextCost
				p.length[next] = p.length[item.node] + edge.Length
				heap.Push(h, heapItem{node: next, cost: nextCost})
			}
		}
	}

	return p
}

// Route computes difficulty for a batch of study points from one projected
// start, preserving input order. startRaw is the user's original coordinate,
// used for the unreachable fallback.
func (r *Router) Route(start network.Location, startRaw geo.Point, targets []StudyPoint, w Weights) []Result {
	w = w.Normalized()
	paths := r.ComputePaths(start)

	results := make([]Result, 0, len(targets))
	for _, target := range targets {
		results = append(results, r.routeOne(paths, startRaw, target, w))
	}
	return results
}

func (r *Router) routeOne(paths *Paths, startRaw geo.Point, target StudyPoint, w Weights) Result {
	res := Result{Name: target.Name, Pt: target.Pt}

	loc, ok := r.net.Project(target.Pt)
	if !ok {
		res.OnNetworkDist = Unreachable
		res.OnNetworkCost = Unreachable
		res.OffNetworkDist = 0
		res.Difficulty = w.OffTrail * startRaw.Dist(target.Pt)
		return res
	}
	res.OffNetworkDist = loc.OffDist

	cost, length := r.costAt(paths, loc)
	res.OnNetworkCost = cost
	res.OnNetworkDist = length

	if math.IsInf(cost, 1) {
		// Different component: degraded but defined behavior.
		res.Difficulty = w.OffTrail * startRaw.Dist(target.Pt)
		return res
	}

	res.Reachable = true
	res.Difficulty = w.OnTrail*cost + w.OffTrail*r.OffNetworkCost(target.Pt, loc.OffDist)
	return res
}

// costAt resolves the accumulated cost and length at a network location.
// Edge-interior locations take the cheaper entry via either endpoint plus
// the partial edge; ties resolve to the From endpoint.
func (r *Router) costAt(paths *Paths, loc network.Location) (float64, float64) {
	if loc.NodeID >= 0 {
		return paths.cost[loc.NodeID], paths.length[loc.NodeID]
	}

	edge := r.net.Edges[loc.EdgeID]
	cost := paths.cost[edge.From] + edge.Cost*loc.T
	length := paths.length[edge.From] + edge.Length*loc.T
	if viaTo := paths.cost[edge.To] + edge.Cost*(1-loc.T); viaTo < cost {
		cost = viaTo
		length = paths.length[edge.To] + edge.Length*(1-loc.T)
	}

	// Start and target interior to the same edge: the direct stretch along
	// the edge beats any detour through an endpoint.
	if paths.start.NodeID < 0 && paths.start.EdgeID == loc.EdgeID {
		span := math.Abs(loc.T - paths.start.T)
		if direct := edge.Cost * span; direct < cost {
			cost = direct
			length = edge.Length * span
		}
	}
	return cost, length
}

// OffNetworkCost slope-adjusts an off-network distance with a single raster
// sample at the destination point. Sampling failures leave the raw distance.
func (r *Router) OffNetworkCost(p geo.Point, dist float64) float64 {
	if r.slopes == nil || dist == 0 {
		return dist
	}
	slope, err := r.slopes.Sample(p)
	if err != nil {
		return dist
	}
	return dist * (1 + r.slopeGain*math.Abs(slope))
}
