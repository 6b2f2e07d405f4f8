package remote

import "github.com/nocdn/volumes/internal/bookmark"

// ListResponse is the payload of GET /api/bookmarks.
type ListResponse struct {
	Items []bookmark.Item `json:"items"`
}

// CreateResponse is the payload of POST /api/bookmarks.
type CreateResponse struct {
	ID string `json:"id"`
}

// MetadataResponse is the payload of GET /api/metadata.
type MetadataResponse struct {
	Title string `json:"title"`
}

// HealthResponse is the payload of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body the server writes alongside 4xx/5xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}
