package models

// TokenRequest is the request body for issuing an access token.
type TokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// TokenResponse is the response body for a successful token issue.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   Timestamp `json:"expiresAt"`
}
