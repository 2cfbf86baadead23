package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/trailgrade/trailgrade/internal/api/models"
	"github.com/trailgrade/trailgrade/internal/api/response"
	"github.com/trailgrade/trailgrade/internal/auth"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	tokens *auth.TokenService

	// clients maps client IDs to their shared secrets.
	clients map[string]string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(tokens *auth.TokenService, clients map[string]string) *AuthHandler {
	return &AuthHandler{
		tokens:  tokens,
		clients: clients,
	}
}

// IssueToken handles POST /v1/auth/token - exchange client credentials for
// a bearer token.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrors []models.FieldError
	if req.ClientID == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "clientId", Message: "is required"})
	}
	if req.ClientSecret == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "clientSecret", Message: "is required"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	secret, ok := h.clients[req.ClientID]
	if !ok || subtle.ConstantTimeCompare([]byte(secret), []byte(req.ClientSecret)) != 1 {
		response.Unauthorized(w, r, "invalid client credentials")
		return
	}

	token, expiresAt, err := h.tokens.Issue(req.ClientID)
	if err != nil {
		response.InternalError(w, r, "token issue failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   models.Timestamp(expiresAt),
	})
}
