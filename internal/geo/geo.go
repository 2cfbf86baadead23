// Package geo provides planar geometry primitives shared by the terrain
// engine: points, bounding boxes, polylines and segment math. All coordinates
// are in a projected CRS, so distances are Euclidean.
package geo

import "math"

// Point is a 2D coordinate in a projected CRS.
type Point struct {
	X float64
	Y float64
}

// Dist returns the Euclidean distance between two points.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// BBox is an axis-aligned bounding box.
type BBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Valid reports whether the box has non-negative extent on both axes.
func (b BBox) Valid() bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

// Contains reports whether p lies inside the box (boundary inclusive).
func (b BBox) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Intersects reports whether two boxes overlap.
func (b BBox) Intersects(other BBox) bool {
	return b.MinX <= other.MaxX && b.MaxX >= other.MinX &&
		b.MinY <= other.MaxY && b.MaxY >= other.MinY
}

// Polyline is an ordered sequence of vertices.
type Polyline []Point

// Length returns the total Euclidean length of the polyline.
func (l Polyline) Length() float64 {
	total := 0.0
	for i := 1; i < len(l); i++ {
		total += l[i-1].Dist(l[i])
	}
	return total
}

// ProjectOnSegment projects p onto the segment a-b, clamped to the segment's
// endpoints. Returns the projected point and the parameter t in [0, 1]
// (0 at a, 1 at b). A degenerate segment projects onto a with t = 0.
func ProjectOnSegment(p, a, b Point) (Point, float64) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a, 0
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return Point{X: a.X + t*dx, Y: a.Y + t*dy}, t
}

// DistToSegment returns the distance from p to the closest point on segment a-b.
func DistToSegment(p, a, b Point) float64 {
	proj, _ := ProjectOnSegment(p, a, b)
	return p.Dist(proj)
}

// Lerp returns the point at parameter t along segment a-b.
func Lerp(a, b Point, t float64) Point {
	return Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
}

// ClipToBox clips a polyline to an axis-aligned box using Liang-Barsky
// segment clipping. Because clipping can split a line where it leaves and
// re-enters the box, the result is a set of polylines. Vertices exactly on
// the boundary are kept. Segments entirely outside are dropped.
func ClipToBox(line Polyline, box BBox) []Polyline {
	var result []Polyline
	var current Polyline

	flush := func() {
		if len(current) >= 2 {
			result = append(result, current)
		}
		current = nil
	}

	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		ca, cb, ok := clipSegment(a, b, box)
		if !ok {
			flush()
			continue
		}
		if len(current) == 0 {
			current = append(current, ca)
		} else if last := current[len(current)-1]; last != ca {
			// The previous segment exited the box; start a new run.
			flush()
			current = append(current, ca)
		}
		current = append(current, cb)
	}
	flush()
	return result
}

// clipSegment clips segment a-b to the box. Reports false when the segment
// lies entirely outside.
func clipSegment(a, b Point, box BBox) (Point, Point, bool) {
	t0, t1 := 0.0, 1.0
	dx := b.X - a.X
	dy := b.Y - a.Y

	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return false
			}
			if r < t1 {
				t1 = r
			}
		}
		return true
	}

	if !clip(-dx, a.X-box.MinX) || !clip(dx, box.MaxX-a.X) ||
		!clip(-dy, a.Y-box.MinY) || !clip(dy, box.MaxY-a.Y) {
		return Point{}, Point{}, false
	}

	ca := Point{X: a.X + t0*dx, Y: a.Y + t0*dy}
	cb := Point{X: a.X + t1*dx, Y: a.Y + t1*dy}
	return ca, cb, true
}
