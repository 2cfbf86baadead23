package session

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository, intended
// for testing and single-node development. Production should use
// PostgresRepository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryRepository creates a new in-memory session repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sessions: make(map[string]*Session)}
}

// Get retrieves a session by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

// GetByOwnerAndID retrieves a session scoped to its owner.
func (r *InMemoryRepository) GetByOwnerAndID(_ context.Context, ownerID, sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

// List retrieves the owner's sessions, newest first.
func (r *InMemoryRepository) List(_ context.Context, ownerID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*Session
	for _, s := range r.sessions {
		if s.OwnerID == ownerID {
			sessions = append(sessions, copySession(s))
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	result := &ListResult{Items: sessions}
	if len(sessions) > limit {
		result.Items = sessions[:limit]
		result.NextCursor = sessions[limit-1].ID
	}
	return result, nil
}

// Create stores a new session.
func (r *InMemoryRepository) Create(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = copySession(s)
	return nil
}

// Update replaces an existing session.
func (r *InMemoryRepository) Update(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; !ok {
		return ErrSessionNotFound
	}
	r.sessions[s.ID] = copySession(s)
	return nil
}

// Delete removes a session by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// copySession deep-copies a session so callers cannot mutate stored state
// through the Points slice.
func copySession(s *Session) *Session {
	cpy := *s
	cpy.Points = append(cpy.Points[:0:0], s.Points...)
	return &cpy
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
