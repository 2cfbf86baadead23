package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/trailgrade/trailgrade/internal/api/models"
	"github.com/trailgrade/trailgrade/internal/api/response"
	"github.com/trailgrade/trailgrade/internal/dataset"
	"github.com/trailgrade/trailgrade/internal/engine"
	"github.com/trailgrade/trailgrade/internal/featureflags"
	"github.com/trailgrade/trailgrade/internal/fetch"
)

// DatasetHandler handles dataset catalog and activation endpoints.
type DatasetHandler struct {
	catalog []dataset.Config
	loader  *dataset.Loader
	engine  *engine.Service
	flags   *featureflags.Service

	mu     sync.RWMutex
	active string
}

// NewDatasetHandler creates a new DatasetHandler.
func NewDatasetHandler(catalog []dataset.Config, loader *dataset.Loader, eng *engine.Service, flags *featureflags.Service) *DatasetHandler {
	return &DatasetHandler{
		catalog: catalog,
		loader:  loader,
		engine:  eng,
		flags:   flags,
	}
}

// Active returns the name of the currently active dataset, or "".
func (h *DatasetHandler) Active() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}

// ListDatasets handles GET /v1/datasets - list the dataset catalog.
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	active := h.Active()

	list := models.DatasetList{Items: make([]models.Dataset, len(h.catalog))}
	for i, cfg := range h.catalog {
		list.Items[i] = models.Dataset{
			Name:   cfg.Name,
			CRS:    cfg.CRS,
			Active: cfg.Name == active,
		}
	}
	response.JSON(w, r, http.StatusOK, list)
}

// ActivateDataset handles POST /v1/datasets/{dataset}:activate - load a
// dataset for the given study area and make it the engine's data source.
func (h *DatasetHandler) ActivateDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dataset")
	if name == "" {
		response.BadRequest(w, r, "dataset is required", nil)
		return
	}

	var req models.DatasetActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	area := toGeoBox(req.Area)
	if !area.Valid() {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "area", Message: "min must be strictly below max on both axes"},
		})
		return
	}

	cfg, err := dataset.Lookup(h.catalog, name)
	if err != nil {
		response.NotFound(w, r, "unknown dataset: "+name)
		return
	}

	if cfg.Remote() && h.flags.IsRemoteSourcesDisabled(r.Context()) {
		response.ServiceUnavailable(w, r, "remote dataset sources are temporarily disabled")
		return
	}

	bundle, err := h.loader.Load(r.Context(), cfg, area)
	if err != nil {
		switch {
		case errors.Is(err, fetch.ErrUnavailable):
			response.ServiceUnavailable(w, r, "dataset source unavailable")
		case errors.Is(err, dataset.ErrNoSource):
			response.InternalError(w, r, "dataset has no configured source")
		default:
			response.BadRequest(w, r, "dataset load failed: "+err.Error(), nil)
		}
		return
	}

	h.engine.SetBundle(bundle)
	h.mu.Lock()
	h.active = cfg.Name
	h.mu.Unlock()

	response.JSON(w, r, http.StatusOK, models.Dataset{
		Name:   cfg.Name,
		CRS:    cfg.CRS,
		Active: true,
	})
}
