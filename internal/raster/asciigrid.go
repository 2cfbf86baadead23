package raster

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseASCIIGrid reads a slope raster in ESRI ASCII grid format. The header
// declares ncols, nrows, xllcorner, yllcorner, cellsize and optionally
// nodata_value, followed by nrows rows of values ordered top-down.
func ParseASCIIGrid(r io.Reader, crs string) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	header := map[string]float64{}
	nodata := -9999.0
	var body []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		key := strings.ToLower(fields[0])
		if len(fields) == 2 && isHeaderKey(key) {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("raster: invalid header value for %s: %w", key, err)
			}
			if key == "nodata_value" {
				nodata = v
			} else {
				header[key] = v
			}
			continue
		}
		body = append(body, fields...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("raster: reading grid: %w", err)
	}

	for _, key := range []string{"ncols", "nrows", "xllcorner", "yllcorner", "cellsize"} {
		if _, ok := header[key]; !ok {
			return nil, fmt.Errorf("raster: missing header field %s", key)
		}
	}

	cols := int(header["ncols"])
	rows := int(header["nrows"])
	if len(body) != cols*rows {
		return nil, fmt.Errorf("raster: expected %d values, got %d", cols*rows, len(body))
	}

	// File rows run top-down; the grid stores them bottom-up.
	values := make([]float64, cols*rows)
	for i, field := range body {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("raster: invalid value %q: %w", field, err)
		}
		fileRow := i / cols
		col := i % cols
		gridRow := rows - 1 - fileRow
		values[gridRow*cols+col] = v
	}

	return NewGrid(GridConfig{
		OriginX:  header["xllcorner"],
		OriginY:  header["yllcorner"],
		CellSize: header["cellsize"],
		Cols:     cols,
		Rows:     rows,
		NoData:   nodata,
		CRS:      crs,
	}, values)
}

func isHeaderKey(key string) bool {
	switch key {
	case "ncols", "nrows", "xllcorner", "yllcorner", "cellsize", "nodata_value":
		return true
	}
	return false
}
