// Package dataset loads the per-session inputs: trail and road vector
// layers, the slope raster and study points. Each dataset is described by an
// explicit Config instead of process-wide state, so concurrent sessions can
// use different regions.
package dataset

import "errors"

var (
	// ErrMalformedImport indicates a point import is missing a required
	// X or Y column.
	ErrMalformedImport = errors.New("point import missing required x/y columns")

	// ErrNoSource indicates a dataset source has neither a path nor a URL.
	ErrNoSource = errors.New("dataset source has no path or url")

	// ErrUnknownDataset indicates a catalog lookup for a name not present.
	ErrUnknownDataset = errors.New("unknown dataset")
)

// Source locates one input layer, either on disk or behind a mirror URL.
// Path wins when both are set.
type Source struct {
	Path string
	URL  string
}

func (s Source) empty() bool {
	return s.Path == "" && s.URL == ""
}

// Config describes one dataset: a named region with its CRS and the three
// input layers.
type Config struct {
	// Name is the dataset identifier, used in catalog lookups and as the
	// fetch circuit breaker name.
	Name string

	// CRS is the projected coordinate reference system all layers share.
	CRS string

	// Trails is the trail vector layer (WKT linestring CSV).
	Trails Source

	// Roads is the road vector layer (WKT linestring CSV).
	Roads Source

	// Slope is the slope raster (ESRI ASCII grid).
	Slope Source
}

// Remote reports whether any layer must be fetched over the network.
func (c Config) Remote() bool {
	for _, s := range []Source{c.Trails, c.Roads, c.Slope} {
		if s.Path == "" && s.URL != "" {
			return true
		}
	}
	return false
}

// DefaultCatalog returns the built-in datasets. Paths are relative to the
// data directory configured at startup.
func DefaultCatalog() []Config {
	return []Config{
		{
			Name:   "rondane",
			CRS:    "EPSG:32632",
			Trails: Source{Path: "rondane/trails.csv"},
			Roads:  Source{Path: "rondane/roads.csv"},
			Slope:  Source{Path: "rondane/slope.asc"},
		},
		{
			Name:   "jotunheimen",
			CRS:    "EPSG:32632",
			Trails: Source{Path: "jotunheimen/trails.csv"},
			Roads:  Source{Path: "jotunheimen/roads.csv"},
			Slope:  Source{Path: "jotunheimen/slope.asc"},
		},
	}
}

// Lookup finds a dataset by name in a catalog.
func Lookup(catalog []Config, name string) (Config, error) {
	for _, cfg := range catalog {
		if cfg.Name == name {
			return cfg, nil
		}
	}
	return Config{}, ErrUnknownDataset
}
