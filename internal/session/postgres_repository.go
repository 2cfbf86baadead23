package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/router"
)

// PostgresRepository is a PostgreSQL implementation of Repository. Study
// points are stored as a JSONB column; the scalar fields get their own
// columns so sessions can be filtered server-side.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL session repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const sessionColumns = `
	id, owner_id, name, dataset,
	area_min_x, area_min_y, area_max_x, area_max_y,
	start_x, start_y,
	threshold_trail_trail, threshold_trail_road,
	weight_on_trail, weight_off_trail,
	points,
	created_at, updated_at
`

// pointRecord is the JSONB wire form of a study point.
type pointRecord struct {
	Name string  `json:"name,omitempty"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func encodePoints(points []router.StudyPoint) ([]byte, error) {
	records := make([]pointRecord, 0, len(points))
	for _, p := range points {
		records = append(records, pointRecord{Name: p.Name, X: p.Pt.X, Y: p.Pt.Y})
	}
	return json.Marshal(records)
}

func decodePoints(data []byte) ([]router.StudyPoint, error) {
	var records []pointRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding session points: %w", err)
	}
	points := make([]router.StudyPoint, 0, len(records))
	for _, r := range records {
		points = append(points, router.StudyPoint{Name: r.Name, Pt: geo.Point{X: r.X, Y: r.Y}})
	}
	return points, nil
}

// Get retrieves a session by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Session, error) {
	query := `SELECT` + sessionColumns + `FROM study_sessions WHERE id = $1`
	return r.scanSession(ctx, query, id)
}

// GetByOwnerAndID retrieves a session scoped to its owner.
func (r *PostgresRepository) GetByOwnerAndID(ctx context.Context, ownerID, sessionID string) (*Session, error) {
	query := `SELECT` + sessionColumns + `FROM study_sessions WHERE id = $1 AND owner_id = $2`
	return r.scanSession(ctx, query, sessionID, ownerID)
}

func (r *PostgresRepository) scanSession(ctx context.Context, query string, args ...any) (*Session, error) {
	var (
		s      Session
		points []byte
	)

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.ID,
		&s.OwnerID,
		&s.Name,
		&s.Dataset,
		&s.Area.MinX,
		&s.Area.MinY,
		&s.Area.MaxX,
		&s.Area.MaxY,
		&s.Start.X,
		&s.Start.Y,
		&s.Thresholds.TrailTrail,
		&s.Thresholds.TrailRoad,
		&s.Weights.OnTrail,
		&s.Weights.OffTrail,
		&points,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if s.Points, err = decodePoints(points); err != nil {
		return nil, err
	}
	return &s, nil
}

// List retrieves the owner's sessions, newest first, with pagination.
func (r *PostgresRepository) List(ctx context.Context, ownerID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	// Fetch one extra to determine if there are more results.
	fetchLimit := limit + 1

	query := `SELECT` + sessionColumns + `
		FROM study_sessions
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, ownerID, fetchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var (
			s      Session
			points []byte
		)
		err := rows.Scan(
			&s.ID,
			&s.OwnerID,
			&s.Name,
			&s.Dataset,
			&s.Area.MinX,
			&s.Area.MinY,
			&s.Area.MaxX,
			&s.Area.MaxY,
			&s.Start.X,
			&s.Start.Y,
			&s.Thresholds.TrailTrail,
			&s.Thresholds.TrailRoad,
			&s.Weights.OnTrail,
			&s.Weights.OffTrail,
			&points,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if s.Points, err = decodePoints(points); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{Items: sessions}
	if len(sessions) > limit {
		result.Items = sessions[:limit]
		result.NextCursor = sessions[limit-1].ID
	}
	return result, nil
}

// Create stores a new session.
func (r *PostgresRepository) Create(ctx context.Context, s *Session) error {
	points, err := encodePoints(s.Points)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO study_sessions (
			id, owner_id, name, dataset,
			area_min_x, area_min_y, area_max_x, area_max_y,
			start_x, start_y,
			threshold_trail_trail, threshold_trail_road,
			weight_on_trail, weight_off_trail,
			points,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.OwnerID,
		s.Name,
		s.Dataset,
		s.Area.MinX,
		s.Area.MinY,
		s.Area.MaxX,
		s.Area.MaxY,
		s.Start.X,
		s.Start.Y,
		s.Thresholds.TrailTrail,
		s.Thresholds.TrailRoad,
		s.Weights.OnTrail,
		s.Weights.OffTrail,
		points,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

// Update replaces an existing session.
func (r *PostgresRepository) Update(ctx context.Context, s *Session) error {
	points, err := encodePoints(s.Points)
	if err != nil {
		return err
	}

	query := `
		UPDATE study_sessions SET
			name = $2,
			dataset = $3,
			area_min_x = $4,
			area_min_y = $5,
			area_max_x = $6,
			area_max_y = $7,
			start_x = $8,
			start_y = $9,
			threshold_trail_trail = $10,
			threshold_trail_road = $11,
			weight_on_trail = $12,
			weight_off_trail = $13,
			points = $14,
			updated_at = $15
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Name,
		s.Dataset,
		s.Area.MinX,
		s.Area.MinY,
		s.Area.MaxX,
		s.Area.MaxY,
		s.Start.X,
		s.Start.Y,
		s.Thresholds.TrailTrail,
		s.Thresholds.TrailRoad,
		s.Weights.OnTrail,
		s.Weights.OffTrail,
		points,
		s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes a session by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM study_sessions WHERE id = $1`, id)
	return err
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
