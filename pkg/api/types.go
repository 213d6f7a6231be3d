package api

import (
	"github.com/dd0wney/cluso-commgraph/pkg/jobs"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WelcomeResponse is served at the root.
type WelcomeResponse struct {
	Message string `json:"message"`
	Uptime  string `json:"uptime"`
}

// TokenResponse is the OAuth2 password-flow token response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// MessageResponse carries a human-readable acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ImportResponse acknowledges an accepted upload. Ingestion continues in the
// background; poll the job for its outcome.
type ImportResponse struct {
	Message    string            `json:"message"`
	ListingSet schema.ListingSet `json:"listing_set"`
	Job        jobs.Job          `json:"job"`
}
