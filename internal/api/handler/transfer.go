package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/trailgrade/trailgrade/internal/api/models"
	"github.com/trailgrade/trailgrade/internal/api/response"
	"github.com/trailgrade/trailgrade/internal/dataset"
)

// TransferHandler handles CSV import and export endpoints.
type TransferHandler struct{}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler() *TransferHandler {
	return &TransferHandler{}
}

// ImportStudyPoints handles POST /v1/study-points:import - parse a
// semicolon-delimited CSV body into study points.
func (h *TransferHandler) ImportStudyPoints(w http.ResponseWriter, r *http.Request) {
	points, err := dataset.ReadStudyPoints(r.Body)
	if err != nil {
		if errors.Is(err, dataset.ErrMalformedImport) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		response.BadRequest(w, r, "malformed CSV body", nil)
		return
	}

	response.JSON(w, r, http.StatusOK, models.StudyPointImportResponse{
		Points: fromStudyPoints(points),
	})
}

// ExportResults handles POST /v1/results:export - render difficulty results
// as a semicolon-delimited CSV download.
func (h *TransferHandler) ExportResults(w http.ResponseWriter, r *http.Request) {
	var req models.ResultExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
	// Headers are committed once the writer flushes, so encode errors can
	// only be dropped here.
	_ = dataset.WriteResults(w, toResults(req.Results))
}
