// Package handler provides HTTP handlers for the TrailGrade API.
package handler

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/trailgrade/trailgrade/internal/api/models"
	"github.com/trailgrade/trailgrade/internal/api/response"
	"github.com/trailgrade/trailgrade/internal/engine"
	"github.com/trailgrade/trailgrade/internal/fetch"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	engine    *engine.Service
	sources   *fetch.Registry
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, eng *engine.Service, sources *fetch.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		engine:    eng,
		sources:   sources,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - engine and source status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())

	stats := h.engine.Stats()
	engineStatus := models.HealthStatusOK
	var engineDetail *string
	if !stats.NetworkUp {
		engineStatus = models.HealthStatusDegraded
		d := "no network built"
		engineDetail = &d
	}

	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   now,
		Subsystems: []models.SubsystemStatus{
			{Name: "engine", Status: engineStatus, Detail: engineDetail},
		},
		Sources: []models.SourceStatus{},
	}

	for _, sh := range h.sources.AllHealth() {
		src := models.SourceStatus{
			Source:       sh.Name,
			Status:       models.HealthStatusOK,
			CircuitState: sh.CircuitState.String(),
		}
		if !sh.Healthy() {
			src.Status = models.HealthStatusDegraded
			if sh.CircuitState == gobreaker.StateOpen {
				src.Status = models.HealthStatusFail
			}
		}
		if sh.LastSuccessAt != nil {
			ts := models.Timestamp(*sh.LastSuccessAt)
			src.LastSuccessAt = &ts
		}
		if sh.LastFailureAt != nil {
			ts := models.Timestamp(*sh.LastFailureAt)
			src.LastFailureAt = &ts
		}
		if sh.LastError != "" {
			msg := sh.LastError
			src.Message = &msg
		}
		if src.Status != models.HealthStatusOK && status.Status == models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
		status.Sources = append(status.Sources, src)
	}

	response.JSON(w, r, http.StatusOK, status)
}
