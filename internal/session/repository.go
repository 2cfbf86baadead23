package session

import "context"

// ListOptions contains options for listing sessions.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains one page of sessions.
type ListResult struct {
	Items      []*Session
	NextCursor string
}

// Repository defines the interface for session persistence.
type Repository interface {
	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*Session, error)

	// GetByOwnerAndID retrieves a session scoped to its owner. Returns
	// ErrSessionNotFound if it doesn't exist or belongs to someone else.
	GetByOwnerAndID(ctx context.Context, ownerID, sessionID string) (*Session, error)

	// List retrieves the owner's sessions, newest first, with pagination.
	List(ctx context.Context, ownerID string, opts ListOptions) (*ListResult, error)

	// Create stores a new session.
	Create(ctx context.Context, s *Session) error

	// Update replaces an existing session.
	Update(ctx context.Context, s *Session) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id string) error
}
