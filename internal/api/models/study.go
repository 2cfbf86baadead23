package models

// Thresholds are the fuzzy connectivity distances used when building the
// network.
type Thresholds struct {
	TrailTrail float64 `json:"trailTrail"`
	TrailRoad  float64 `json:"trailRoad"`
}

// Weights are the difficulty weighting factors.
type Weights struct {
	OnTrail  float64 `json:"onTrail"`
	OffTrail float64 `json:"offTrail"`
}

// StudyPoint is a named target coordinate.
type StudyPoint struct {
	Name string `json:"name,omitempty"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// NetworkSummary describes a built network.
type NetworkSummary struct {
	Dataset string `json:"dataset"`
	CRS     string `json:"crs"`
	Area    Box    `json:"area"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
}

// NetworkEdge is one graph edge in an edge listing. Shape is the encoded
// planar polyline of the edge geometry.
type NetworkEdge struct {
	ID     int     `json:"id"`
	Kind   string  `json:"kind"`
	Length float64 `json:"length"`
	Cost   float64 `json:"cost"`
	Shape  string  `json:"shape"`
}

// NetworkEdgeList is the edge listing response.
type NetworkEdgeList struct {
	Dataset string        `json:"dataset"`
	Items   []NetworkEdge `json:"items"`
}

// ThresholdsUpdateRequest is the request body for updating connectivity
// thresholds. The network is rebuilt lazily on the next query.
type ThresholdsUpdateRequest struct {
	Thresholds Thresholds `json:"thresholds"`
}

// ProjectRequest is the request body for projecting a point onto the network.
type ProjectRequest struct {
	Point Point `json:"point"`
}

// ProjectResponse describes the network location nearest a query point.
type ProjectResponse struct {
	Point     Point   `json:"point"`
	EdgeID    int     `json:"edgeId"`
	NodeID    *int    `json:"nodeId,omitempty"`
	T         float64 `json:"t"`
	OffDist   float64 `json:"offDistance"`
	Component int     `json:"component"`
}

// DifficultyRequest is the request body for a difficulty computation.
type DifficultyRequest struct {
	Start   Point        `json:"start"`
	Points  []StudyPoint `json:"points"`
	Weights Weights      `json:"weights"`
}

// DifficultyResult is the per-target difficulty breakdown.
type DifficultyResult struct {
	Name           string   `json:"name,omitempty"`
	Point          Point    `json:"point"`
	OnNetworkDist  Distance `json:"onNetworkDistance"`
	OnNetworkCost  Distance `json:"onNetworkCost"`
	OffNetworkDist float64  `json:"offNetworkDistance"`
	Difficulty     float64  `json:"difficulty"`
	Reachable      bool     `json:"reachable"`
}

// DifficultyResponse is the response body for a difficulty computation.
type DifficultyResponse struct {
	Results []DifficultyResult `json:"results"`
}

// BufferRequest is the request body for a buffer aggregation.
type BufferRequest struct {
	Start    Point   `json:"start"`
	Weights  Weights `json:"weights"`
	Width    float64 `json:"width,omitempty"`
	CellSize float64 `json:"cellSize,omitempty"`
}

// BufferCell is one raster cell of a buffer aggregation.
type BufferCell struct {
	Row        int     `json:"row"`
	Col        int     `json:"col"`
	Center     Point   `json:"center"`
	Difficulty float64 `json:"difficulty"`
	Reachable  bool    `json:"reachable"`
}

// BufferResponse is the response body for a buffer aggregation.
type BufferResponse struct {
	Width    float64      `json:"width"`
	CellSize float64      `json:"cellSize"`
	Cells    []BufferCell `json:"cells"`
}

// Dataset describes one catalog entry.
type Dataset struct {
	Name   string `json:"name"`
	CRS    string `json:"crs"`
	Active bool   `json:"active"`
}

// DatasetList is the catalog listing response.
type DatasetList struct {
	Items []Dataset `json:"items"`
}

// DatasetActivateRequest is the request body for activating a dataset.
type DatasetActivateRequest struct {
	Area Box `json:"area"`
}

// StudyPointImportResponse is the response body for a CSV study point import.
type StudyPointImportResponse struct {
	Points []StudyPoint `json:"points"`
}

// ResultExportRequest is the request body for a CSV result export.
type ResultExportRequest struct {
	Results []DifficultyResult `json:"results"`
}
