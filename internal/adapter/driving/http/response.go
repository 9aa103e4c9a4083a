package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// rateLimitResponse is the 429 body; RetryAfter is in whole seconds.
type rateLimitResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after"`
}

// successResponse is the body for operations with no further payload.
type successResponse struct {
	Success bool `json:"success"`
}

// LoginRequest is the JSON body for the login endpoint.
type LoginRequest struct {
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// StatusResponse is the JSON representation of the session status endpoint.
type StatusResponse struct {
	Authenticated bool    `json:"authenticated"`
	LoginTime     *string `json:"login_time"`
}

// ConnectionResponse is the JSON representation of a connection profile.
// Credential fields never appear here, encrypted or otherwise.
type ConnectionResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Endpoint       string `json:"endpoint"`
	Region         string `json:"region"`
	ForcePathStyle bool   `json:"force_path_style"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      string `json:"created_at"`
}

// CreateConnectionRequest is the JSON body for the create connection endpoint.
type CreateConnectionRequest struct {
	Name           string `json:"name"`
	Endpoint       string `json:"endpoint"`
	AccessKey      string `json:"access_key"`
	SecretKey      string `json:"secret_key"`
	Region         string `json:"region"`
	ForcePathStyle bool   `json:"force_path_style"`
}

// UpdateConnectionRequest is the JSON body for the update endpoint. Omitted
// fields keep their stored values.
type UpdateConnectionRequest struct {
	Name           *string `json:"name"`
	Endpoint       *string `json:"endpoint"`
	AccessKey      *string `json:"access_key"`
	SecretKey      *string `json:"secret_key"`
	Region         *string `json:"region"`
	ForcePathStyle *bool   `json:"force_path_style"`
}

// TestConnectionRequest is the JSON body for the stateless connectivity test.
type TestConnectionRequest struct {
	Endpoint       string `json:"endpoint"`
	AccessKey      string `json:"access_key"`
	SecretKey      string `json:"secret_key"`
	Region         string `json:"region"`
	ForcePathStyle bool   `json:"force_path_style"`
}

// CreateConnectionResponse reports the new profile ID and whether the
// connectivity probe succeeded before persisting.
type CreateConnectionResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Tested  bool   `json:"tested"`
}

// UpdateConnectionResponse reports whether the connectivity probe succeeded
// with the updated parameters.
type UpdateConnectionResponse struct {
	Success bool `json:"success"`
	Tested  bool `json:"tested"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toConnectionResponse converts a domain profile to its JSON representation,
// dropping the encrypted credential fields.
func toConnectionResponse(p model.ConnectionProfile) ConnectionResponse {
	return ConnectionResponse{
		ID:             p.ID,
		Name:           p.Name,
		Endpoint:       p.Endpoint,
		Region:         p.Region,
		ForcePathStyle: p.ForcePathStyle,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
