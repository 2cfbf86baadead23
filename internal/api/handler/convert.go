package handler

import (
	"github.com/trailgrade/trailgrade/internal/api/models"
	"github.com/trailgrade/trailgrade/internal/buffer"
	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/network"
	"github.com/trailgrade/trailgrade/internal/router"
	"github.com/trailgrade/trailgrade/internal/session"
)

func toGeoPoint(p models.Point) geo.Point {
	return geo.Point{X: p.X, Y: p.Y}
}

func fromGeoPoint(p geo.Point) models.Point {
	return models.Point{X: p.X, Y: p.Y}
}

func toGeoBox(b models.Box) geo.BBox {
	return geo.BBox{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
}

func fromGeoBox(b geo.BBox) models.Box {
	return models.Box{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
}

func toThresholds(t models.Thresholds) network.Thresholds {
	return network.Thresholds{TrailTrail: t.TrailTrail, TrailRoad: t.TrailRoad}
}

func fromThresholds(t network.Thresholds) models.Thresholds {
	return models.Thresholds{TrailTrail: t.TrailTrail, TrailRoad: t.TrailRoad}
}

func toWeights(w models.Weights) router.Weights {
	return router.Weights{OnTrail: w.OnTrail, OffTrail: w.OffTrail}
}

func fromWeights(w router.Weights) models.Weights {
	return models.Weights{OnTrail: w.OnTrail, OffTrail: w.OffTrail}
}

func toStudyPoints(pts []models.StudyPoint) []router.StudyPoint {
	out := make([]router.StudyPoint, len(pts))
	for i, p := range pts {
		out[i] = router.StudyPoint{Name: p.Name, Pt: geo.Point{X: p.X, Y: p.Y}}
	}
	return out
}

func fromStudyPoints(pts []router.StudyPoint) []models.StudyPoint {
	out := make([]models.StudyPoint, len(pts))
	for i, p := range pts {
		out[i] = models.StudyPoint{Name: p.Name, X: p.Pt.X, Y: p.Pt.Y}
	}
	return out
}

func fromResults(results []router.Result) []models.DifficultyResult {
	out := make([]models.DifficultyResult, len(results))
	for i, res := range results {
		out[i] = models.DifficultyResult{
			Name:           res.Name,
			Point:          fromGeoPoint(res.Pt),
			OnNetworkDist:  models.Distance(res.OnNetworkDist),
			OnNetworkCost:  models.Distance(res.OnNetworkCost),
			OffNetworkDist: res.OffNetworkDist,
			Difficulty:     res.Difficulty,
			Reachable:      res.Reachable,
		}
	}
	return out
}

func toResults(results []models.DifficultyResult) []router.Result {
	out := make([]router.Result, len(results))
	for i, res := range results {
		out[i] = router.Result{
			Name:           res.Name,
			Pt:             toGeoPoint(res.Point),
			OnNetworkDist:  float64(res.OnNetworkDist),
			OnNetworkCost:  float64(res.OnNetworkCost),
			OffNetworkDist: res.OffNetworkDist,
			Difficulty:     res.Difficulty,
			Reachable:      res.Reachable,
		}
	}
	return out
}

func fromCells(cells []buffer.Cell) []models.BufferCell {
	out := make([]models.BufferCell, len(cells))
	for i, c := range cells {
		out[i] = models.BufferCell{
			Row:        c.Row,
			Col:        c.Col,
			Center:     fromGeoPoint(c.Center),
			Difficulty: c.Difficulty,
			Reachable:  c.Reachable,
		}
	}
	return out
}

func fromSession(s *session.Session) models.Session {
	return models.Session{
		ID:         s.ID,
		Name:       s.Name,
		Dataset:    s.Dataset,
		Area:       fromGeoBox(s.Area),
		Start:      fromGeoPoint(s.Start),
		Thresholds: fromThresholds(s.Thresholds),
		Weights:    fromWeights(s.Weights),
		Points:     fromStudyPoints(s.Points),
		CreatedAt:  models.Timestamp(s.CreatedAt),
		UpdatedAt:  models.Timestamp(s.UpdatedAt),
	}
}

func toSessionInput(req models.SessionRequest) session.Input {
	return session.Input{
		Name:       req.Name,
		Dataset:    req.Dataset,
		Area:       toGeoBox(req.Area),
		Start:      toGeoPoint(req.Start),
		Thresholds: toThresholds(req.Thresholds),
		Weights:    toWeights(req.Weights),
		Points:     toStudyPoints(req.Points),
	}
}
