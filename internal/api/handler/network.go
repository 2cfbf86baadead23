package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/trailgrade/trailgrade/internal/api/models"
	"github.com/trailgrade/trailgrade/internal/api/response"
	"github.com/trailgrade/trailgrade/internal/engine"
	"github.com/trailgrade/trailgrade/internal/featureflags"
	"github.com/trailgrade/trailgrade/internal/network"
	"github.com/trailgrade/trailgrade/pkg/polyline"
)

// NetworkHandler handles network build and projection endpoints.
type NetworkHandler struct {
	engine        *engine.Service
	flags         *featureflags.Service
	activeDataset func() string
}

// NewNetworkHandler creates a new NetworkHandler.
func NewNetworkHandler(eng *engine.Service, flags *featureflags.Service, activeDataset func() string) *NetworkHandler {
	return &NetworkHandler{
		engine:        eng,
		flags:         flags,
		activeDataset: activeDataset,
	}
}

// writeNetworkError maps engine build errors onto problem responses.
func writeNetworkError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrNoBundle):
		response.Conflict(w, r, "no dataset activated")
	case errors.Is(err, network.ErrEmptyInput):
		response.Conflict(w, r, "active dataset has no trails")
	case errors.Is(err, network.ErrOutOfBounds):
		response.Conflict(w, r, "study area extends beyond the slope raster")
	default:
		response.InternalError(w, r, "network build failed")
	}
}

// summary builds the response body for a built network.
func (h *NetworkHandler) summary(net *network.Network) models.NetworkSummary {
	return models.NetworkSummary{
		Dataset: h.activeDataset(),
		CRS:     net.CRS,
		Area:    fromGeoBox(net.Area),
		Nodes:   len(net.Nodes),
		Edges:   len(net.Edges),
	}
}

// BuildNetwork handles POST /v1/network:build - build (or rebuild) the
// network for the active dataset.
func (h *NetworkHandler) BuildNetwork(w http.ResponseWriter, r *http.Request) {
	if h.flags.IsNetworkRebuildDisabled(r.Context()) {
		response.ServiceUnavailable(w, r, "network rebuilds are temporarily disabled")
		return
	}

	h.engine.Invalidate()
	net, err := h.engine.Network(r.Context())
	if err != nil {
		writeNetworkError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, h.summary(net))
}

// GetNetwork handles GET /v1/network - describe the current network,
// building it on first access.
func (h *NetworkHandler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	net, err := h.engine.Network(r.Context())
	if err != nil {
		writeNetworkError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, h.summary(net))
}

// GetEdges handles GET /v1/network/edges - list the graph edges with their
// encoded shapes, optionally filtered by ?kind=trail|road|connector.
func (h *NetworkHandler) GetEdges(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	switch kind {
	case "", string(network.KindTrail), string(network.KindRoad), string(network.KindConnector):
	default:
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "kind", Message: "must be one of trail, road, connector"},
		})
		return
	}

	net, err := h.engine.Network(r.Context())
	if err != nil {
		writeNetworkError(w, r, err)
		return
	}

	items := make([]models.NetworkEdge, 0, len(net.Edges))
	for _, e := range net.Edges {
		if kind != "" && string(e.Kind) != kind {
			continue
		}
		from := net.Nodes[e.From].Pt
		to := net.Nodes[e.To].Pt
		items = append(items, models.NetworkEdge{
			ID:     e.ID,
			Kind:   string(e.Kind),
			Length: e.Length,
			Cost:   e.Cost,
			Shape: polyline.Encode([]polyline.Point{
				{X: from.X, Y: from.Y},
				{X: to.X, Y: to.Y},
			}),
		})
	}

	response.JSON(w, r, http.StatusOK, models.NetworkEdgeList{
		Dataset: h.activeDataset(),
		Items:   items,
	})
}

// UpdateThresholds handles PUT /v1/network/thresholds - change the fuzzy
// connectivity thresholds. The network is rebuilt on the next query.
func (h *NetworkHandler) UpdateThresholds(w http.ResponseWriter, r *http.Request) {
	var req models.ThresholdsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrors []models.FieldError
	if req.Thresholds.TrailTrail < 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "thresholds.trailTrail", Message: "must not be negative"})
	}
	if req.Thresholds.TrailRoad < 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "thresholds.trailRoad", Message: "must not be negative"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	h.engine.SetThresholds(toThresholds(req.Thresholds))
	response.JSON(w, r, http.StatusOK, req)
}

// Project handles POST /v1/network:project - snap a coordinate to the
// nearest point on the network.
func (h *NetworkHandler) Project(w http.ResponseWriter, r *http.Request) {
	var req models.ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	loc, err := h.engine.Project(r.Context(), toGeoPoint(req.Point))
	if err != nil {
		writeNetworkError(w, r, err)
		return
	}

	resp := models.ProjectResponse{
		Point:     fromGeoPoint(loc.Pt),
		EdgeID:    loc.EdgeID,
		T:         loc.T,
		OffDist:   loc.OffDist,
		Component: loc.Component,
	}
	if loc.NodeID >= 0 {
		id := loc.NodeID
		resp.NodeID = &id
	}
	response.JSON(w, r, http.StatusOK, resp)
}
