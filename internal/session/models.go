// Package session persists saved study sessions: the study area, start
// point, thresholds, weights and study points a user has configured for a
// dataset, so a session survives restarts and can be reopened later.
package session

import (
	"errors"
	"time"

	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/network"
	"github.com/trailgrade/trailgrade/internal/router"
)

// Repository errors.
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Session is a saved study configuration.
type Session struct {
	ID      string
	OwnerID string
	Name    string

	// Dataset is the catalog name of the dataset this session studies.
	Dataset string

	Area       geo.BBox
	Start      geo.Point
	Thresholds network.Thresholds
	Weights    router.Weights
	Points     []router.StudyPoint

	CreatedAt time.Time
	UpdatedAt time.Time
}
