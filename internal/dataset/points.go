package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/router"
)

// ReadStudyPoints imports targets from a `;`-delimited CSV. X and Y columns
// (case-insensitive) are required; a Name column is optional. A missing axis
// column is ErrMalformedImport.
func ReadStudyPoints(r io.Reader) ([]router.StudyPoint, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading point header: %w", err)
	}

	xCol, yCol, nameCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "x":
			xCol = i
		case "y":
			yCol = i
		case "name":
			nameCol = i
		}
	}
	if xCol < 0 || yCol < 0 {
		return nil, ErrMalformedImport
	}

	var points []router.StudyPoint
	for row := 2; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading point row %d: %w", row, err)
		}
		if xCol >= len(record) || yCol >= len(record) {
			return nil, fmt.Errorf("point row %d: %w", row, ErrMalformedImport)
		}

		x, err := strconv.ParseFloat(strings.TrimSpace(record[xCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("point row %d: malformed x: %w", row, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(record[yCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("point row %d: malformed y: %w", row, err)
		}

		p := router.StudyPoint{Pt: geo.Point{X: x, Y: y}}
		if nameCol >= 0 && nameCol < len(record) {
			p.Name = strings.TrimSpace(record[nameCol])
		}
		points = append(points, p)
	}
	return points, nil
}

// WriteResults exports difficulty results as a `;`-delimited CSV that
// ReadStudyPoints can re-import. On-network fields are left blank for
// unreachable targets.
func WriteResults(w io.Writer, results []router.Result) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	header := []string{"name", "x", "y", "on_network_distance", "off_network_distance", "difficulty"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing result header: %w", err)
	}

	for _, res := range results {
		onDist := ""
		if res.Reachable {
			onDist = formatFloat(res.OnNetworkDist)
		}
		record := []string{
			res.Name,
			formatFloat(res.Pt.X),
			formatFloat(res.Pt.Y),
			onDist,
			formatFloat(res.OffNetworkDist),
			formatFloat(res.Difficulty),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing result for %q: %w", res.Name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
