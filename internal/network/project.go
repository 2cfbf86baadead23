package network

import (
	"github.com/trailgrade/trailgrade/internal/geo"
)

// Location is a position on the network: either an existing node or an
// interpolated point on the interior of an edge.
type Location struct {
	// Pt is the nearest point on the network.
	Pt geo.Point

	// EdgeID is the edge carrying the location.
	EdgeID int

	// NodeID is >= 0 when the location coincides with a node, -1 for an
	// edge-interior point.
	NodeID int

	// T is the parameter along the edge (0 at From, 1 at To).
	T float64

	// OffDist is the Euclidean distance from the query coordinate to Pt.
	OffDist float64

	// Component is the connected component the location belongs to.
	Component int
}

// nodeSnapEpsilon treats projections within this parameter distance of an
// endpoint as the endpoint itself.
const nodeSnapEpsilon = 1e-9

// Project snaps an arbitrary coordinate onto the nearest point on the
// network via perpendicular projection onto the nearest edge, clamped to the
// edge's endpoints. Reports false only for an empty network.
func (n *Network) Project(p geo.Point) (Location, bool) {
	nearest, ok := n.edgeIndex.Nearest(p)
	if !ok {
		return Location{}, false
	}

	edge := n.Edges[nearest.ID]
	a := n.Nodes[edge.From].Pt
	b := n.Nodes[edge.To].Pt
	proj, t := geo.ProjectOnSegment(p, a, b)

	loc := Location{
		Pt:        proj,
		EdgeID:    edge.ID,
		NodeID:    -1,
		T:         t,
		OffDist:   p.Dist(proj),
		Component: n.component[edge.From],
	}
	if t <= nodeSnapEpsilon {
		loc.NodeID = edge.From
		loc.Pt = a
		loc.T = 0
		loc.OffDist = p.Dist(a)
	} else if t >= 1-nodeSnapEpsilon {
		loc.NodeID = edge.To
		loc.Pt = b
		loc.T = 1
		loc.OffDist = p.Dist(b)
	}
	return loc, true
}
