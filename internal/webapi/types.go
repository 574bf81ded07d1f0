package webapi

import "github.com/agentlens/agentlens/internal/models"

// RunSummary is the API response for one dataset run in the list.
type RunSummary struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Status    models.RunStatus `json:"status"`
	Metadata  models.Metadata  `json:"metadata,omitempty"`
	CreatedAt string           `json:"createdAt"`
	UpdatedAt string           `json:"updatedAt"`
}

// RunDetail is the API response for one dataset run with its items and their
// scores.
type RunDetail struct {
	RunSummary
	Items []RunItemDetail `json:"items"`
}

// RunItemDetail is one run item with the scores attached to it.
type RunItemDetail struct {
	models.RunItem
	Scores []models.Score `json:"scores"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
