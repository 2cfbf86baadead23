package models

// Session represents a saved study session.
type Session struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Dataset    string       `json:"dataset"`
	Area       Box          `json:"area"`
	Start      Point        `json:"start"`
	Thresholds Thresholds   `json:"thresholds"`
	Weights    Weights      `json:"weights"`
	Points     []StudyPoint `json:"points"`
	CreatedAt  Timestamp    `json:"createdAt"`
	UpdatedAt  Timestamp    `json:"updatedAt"`
}

// SessionRequest is the request body for creating or replacing a session.
// Updates replace the whole session rather than patching fields.
type SessionRequest struct {
	Name       string       `json:"name"`
	Dataset    string       `json:"dataset"`
	Area       Box          `json:"area"`
	Start      Point        `json:"start"`
	Thresholds Thresholds   `json:"thresholds"`
	Weights    Weights      `json:"weights"`
	Points     []StudyPoint `json:"points"`
}

// PagedSessions represents a paginated list of sessions.
type PagedSessions struct {
	Items []Session         `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
