package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trailgrade/trailgrade/internal/geo"
	"github.com/trailgrade/trailgrade/internal/network"
	"github.com/trailgrade/trailgrade/internal/router"
)

// Validation constants.
const (
	MaxNameLength  = 80
	MaxStudyPoints = 500
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates field errors for one request.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Input is the caller-supplied session content. Saves replace the whole
// session rather than patching fields, matching how the UI works.
type Input struct {
	Name       string
	Dataset    string
	Area       geo.BBox
	Start      geo.Point
	Thresholds network.Thresholds
	Weights    router.Weights
	Points     []router.StudyPoint
}

// Service provides session CRUD with validation.
type Service struct {
	repo Repository
}

// NewService creates a session service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List retrieves a page of the owner's sessions.
func (s *Service) List(ctx context.Context, ownerID string, opts ListOptions) (*ListResult, error) {
	return s.repo.List(ctx, ownerID, opts)
}

// Get retrieves one of the owner's sessions.
func (s *Service) Get(ctx context.Context, ownerID, sessionID string) (*Session, error) {
	return s.repo.GetByOwnerAndID(ctx, ownerID, sessionID)
}

// Create validates and stores a new session for the owner.
func (s *Service) Create(ctx context.Context, ownerID string, input Input) (*Session, error) {
	if fieldErrors := validateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := time.Now()
	sess := fromInput(input)
	sess.ID = "ses_" + uuid.New().String()
	sess.OwnerID = ownerID
	sess.CreatedAt = now
	sess.UpdatedAt = now

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Update validates and replaces an existing session's content.
func (s *Service) Update(ctx context.Context, ownerID, sessionID string, input Input) (*Session, error) {
	existing, err := s.repo.GetByOwnerAndID(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	if fieldErrors := validateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	sess := fromInput(input)
	sess.ID = existing.ID
	sess.OwnerID = existing.OwnerID
	sess.CreatedAt = existing.CreatedAt
	sess.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes one of the owner's sessions.
func (s *Service) Delete(ctx context.Context, ownerID, sessionID string) error {
	if _, err := s.repo.GetByOwnerAndID(ctx, ownerID, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return s.repo.Delete(ctx, sessionID)
}

func validateInput(input Input) []FieldError {
	var errs []FieldError

	if input.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "is required"})
	} else if len(input.Name) > MaxNameLength {
		errs = append(errs, FieldError{Field: "name", Message: "must be at most 80 characters"})
	}

	if input.Dataset == "" {
		errs = append(errs, FieldError{Field: "dataset", Message: "is required"})
	}

	if !input.Area.Valid() {
		errs = append(errs, FieldError{Field: "area", Message: "min corner must be below max corner"})
	}

	if input.Thresholds.TrailTrail < 0 || input.Thresholds.TrailRoad < 0 {
		errs = append(errs, FieldError{Field: "thresholds", Message: "must be non-negative"})
	}

	if input.Weights.OnTrail <= 0 || input.Weights.OffTrail <= 0 {
		errs = append(errs, FieldError{Field: "weights", Message: "must be positive"})
	}

	if len(input.Points) > MaxStudyPoints {
		errs = append(errs, FieldError{Field: "points", Message: "must contain at most 500 points"})
	}

	return errs
}

func fromInput(input Input) *Session {
	return &Session{
		Name:       input.Name,
		Dataset:    input.Dataset,
		Area:       input.Area,
		Start:      input.Start,
		Thresholds: input.Thresholds,
		Weights:    input.Weights,
		Points:     append(input.Points[:0:0], input.Points...),
	}
}
