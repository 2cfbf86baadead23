package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/trailgrade/trailgrade/internal/geo"
)

// ParseLineString parses a WKT LINESTRING into a polyline. It accepts the
// usual spacing variants ("LINESTRING(0 0, 1 1)", "LINESTRING (0 0,1 1)")
// and returns nil for LINESTRING EMPTY.
func ParseLineString(s string) (geo.Polyline, error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(s), "LINESTRING")
	if !ok {
		return nil, fmt.Errorf("not a linestring: %q", s)
	}
	body = strings.TrimSpace(body)
	if strings.EqualFold(body, "EMPTY") {
		return nil, nil
	}
	if !strings.HasPrefix(body, "(") || !strings.HasSuffix(body, ")") {
		return nil, fmt.Errorf("malformed linestring: %q", s)
	}

	pairs := strings.Split(body[1:len(body)-1], ",")
	line := make(geo.Polyline, 0, len(pairs))
	for _, pair := range pairs {
		fields := strings.Fields(pair)
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed coordinate %q in %q", pair, s)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed x in %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed y in %q: %w", pair, err)
		}
		line = append(line, geo.Point{X: x, Y: y})
	}
	return line, nil
}

// ReadVector reads a `;`-delimited CSV vector layer whose geometry column
// (named "wkt" or "geometry", case-insensitive) holds WKT linestrings.
// Empty geometries are skipped.
func ReadVector(r io.Reader) ([]geo.Polyline, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading vector header: %w", err)
	}

	col := -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "wkt", "geometry":
			col = i
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("vector layer has no wkt or geometry column")
	}

	var lines []geo.Polyline
	for row := 2; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading vector row %d: %w", row, err)
		}
		if col >= len(record) {
			continue
		}
		line, err := ParseLineString(record[col])
		if err != nil {
			return nil, fmt.Errorf("vector row %d: %w", row, err)
		}
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
