package handler

import (
	"encoding/json"
	"net/http"

	"github.com/trailgrade/trailgrade/internal/api/models"
	"github.com/trailgrade/trailgrade/internal/api/response"
	"github.com/trailgrade/trailgrade/internal/buffer"
	"github.com/trailgrade/trailgrade/internal/engine"
	"github.com/trailgrade/trailgrade/internal/featureflags"
)

// MaxStudyPointsPerRequest bounds a single difficulty computation. The
// max_study_points flag can lower (or raise) it at runtime.
const MaxStudyPointsPerRequest = 500

// StudyHandler handles difficulty and buffer computation endpoints.
type StudyHandler struct {
	engine *engine.Service
	flags  *featureflags.Service
}

// NewStudyHandler creates a new StudyHandler.
func NewStudyHandler(eng *engine.Service, flags *featureflags.Service) *StudyHandler {
	return &StudyHandler{engine: eng, flags: flags}
}

// ComputeDifficulty handles POST /v1/difficulty:compute - score a batch of
// study points against a start coordinate.
func (h *StudyHandler) ComputeDifficulty(w http.ResponseWriter, r *http.Request) {
	var req models.DifficultyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	maxPoints := h.flags.MaxStudyPoints(r.Context(), MaxStudyPointsPerRequest)

	var fieldErrors []models.FieldError
	if len(req.Points) == 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "points", Message: "at least one study point is required"})
	}
	if len(req.Points) > maxPoints {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "points", Message: "too many study points"})
	}
	if req.Weights.OnTrail < 0 || req.Weights.OffTrail < 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "weights", Message: "must not be negative"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	results, err := h.engine.Difficulty(r.Context(), toGeoPoint(req.Start), toStudyPoints(req.Points), toWeights(req.Weights))
	if err != nil {
		writeNetworkError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.DifficultyResponse{Results: fromResults(results)})
}

// ComputeBuffer handles POST /v1/buffer:compute - rasterize a difficulty
// surface over the trail buffer band.
func (h *StudyHandler) ComputeBuffer(w http.ResponseWriter, r *http.Request) {
	if h.flags.IsBufferComputeDisabled(r.Context()) {
		response.ServiceUnavailable(w, r, "buffer computation is temporarily disabled")
		return
	}

	var req models.BufferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrors []models.FieldError
	if req.Width < 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "width", Message: "must not be negative"})
	}
	if req.CellSize < 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "cellSize", Message: "must not be negative"})
	}
	if req.Weights.OnTrail < 0 || req.Weights.OffTrail < 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "weights", Message: "must not be negative"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	width := req.Width
	if width == 0 {
		width = buffer.DefaultWidth
	}
	cellSize := req.CellSize
	if cellSize == 0 {
		cellSize = buffer.DefaultCellSize
	}

	cells, err := h.engine.Buffer(r.Context(), toGeoPoint(req.Start), toWeights(req.Weights), width, cellSize)
	if err != nil {
		writeNetworkError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.BufferResponse{
		Width:    width,
		CellSize: cellSize,
		Cells:    fromCells(cells),
	})
}
