// Package polyline provides a compact text encoding for planar coordinate
// sequences, using the signed varint delta scheme of Google's polyline
// algorithm applied to projected X/Y coordinates instead of lat/lon.
package polyline

import (
	"math"
)

// precisionFactor fixes the coordinate resolution at two decimal places,
// which is centimeter resolution for meter-based projected coordinates.
const precisionFactor = 1e2

// Point is a planar coordinate in a projected CRS (meters).
type Point struct {
	X float64
	Y float64
}

// Decode decodes an encoded string into a slice of planar points.
func Decode(encoded string) []Point {
	if encoded == "" {
		return nil
	}

	var points []Point
	index := 0
	x := 0
	y := 0

	for index < len(encoded) {
		xDelta, newIndex := decodeValue(encoded, index)
		index = newIndex
		x += xDelta

		yDelta, newIndex := decodeValue(encoded, index)
		index = newIndex
		y += yDelta

		points = append(points, Point{
			X: float64(x) / precisionFactor,
			Y: float64(y) / precisionFactor,
		})
	}

	return points
}

// decodeValue decodes a single value from the encoded string at the given
// index. Returns the decoded delta value and the new index position.
func decodeValue(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	// Apply two's complement for negative values
	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode encodes a slice of planar points into a compact string. Successive
// points are delta-encoded, so long traverses with small steps stay short.
func Encode(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(points)*6)
	prevX := 0
	prevY := 0

	for _, p := range points {
		x := int(math.Round(p.X * precisionFactor))
		y := int(math.Round(p.Y * precisionFactor))

		encoded = encodeValue(encoded, x-prevX)
		encoded = encodeValue(encoded, y-prevY)

		prevX = x
		prevY = y
	}

	return string(encoded)
}

// encodeValue encodes a single integer value using the polyline algorithm.
func encodeValue(buf []byte, value int) []byte {
	// Invert if negative
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	// Encode in 5-bit chunks
	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	buf = append(buf, byte(value)+63)

	return buf
}

// Length returns the total Euclidean length of the point sequence.
func Length(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(points); i++ {
		total += distance(points[i-1], points[i])
	}
	return total
}

// Sample returns points sampled at approximately the specified interval
// along the sequence. The first and last points are always included.
func Sample(points []Point, interval float64) []Point {
	if len(points) == 0 {
		return nil
	}
	if interval <= 0 {
		return points
	}

	sampled := []Point{points[0]}
	accumulated := 0.0

	for i := 1; i < len(points); i++ {
		segmentDist := distance(points[i-1], points[i])
		start := points[i-1]
		end := points[i]

		for accumulated+segmentDist >= interval {
			remaining := interval - accumulated
			fraction := remaining / distance(start, end)

			start = Point{
				X: start.X + fraction*(end.X-start.X),
				Y: start.Y + fraction*(end.Y-start.Y),
			}
			sampled = append(sampled, start)

			segmentDist -= remaining
			accumulated = 0
		}

		accumulated += segmentDist
	}

	last := points[len(points)-1]
	if sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}

	return sampled
}

func distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
