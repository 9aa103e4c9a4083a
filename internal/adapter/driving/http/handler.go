// Package httphandler is the HTTP driving adapter. It serves the REST API the
// browser frontend talks to: session login and the connection profile
// registry.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ericfisherdev/bucketpanel/internal/application"
	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
	"github.com/ericfisherdev/bucketpanel/internal/domain/port/driven"
)

// sessionCookieName holds the opaque session token on the browser side.
const sessionCookieName = "bucketpanel_session"

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	auth   *application.AuthService
	conns  *application.ConnectionService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(auth *application.AuthService, conns *application.ConnectionService, logger *slog.Logger) *Handler {
	return &Handler{
		auth:   auth,
		conns:  conns,
		logger: logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. Everything under /connections
// requires a live session.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("GET /connections", h.requireSession(h.ListConnections))
	mux.HandleFunc("POST /connections", h.requireSession(h.CreateConnection))
	mux.HandleFunc("PUT /connections/{id}", h.requireSession(h.UpdateConnection))
	mux.HandleFunc("DELETE /connections/{id}", h.requireSession(h.DeleteConnection))
	mux.HandleFunc("POST /connections/{id}/activate", h.requireSession(h.ActivateConnection))
	mux.HandleFunc("POST /connections/disconnect", h.requireSession(h.Disconnect))
	mux.HandleFunc("POST /connections/test", h.requireSession(h.TestConnection))

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Login verifies the admin password and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	session, err := h.auth.Login(r.Context(), clientIP(r), req.Password, req.RememberMe)
	if err != nil {
		var rle *model.RateLimitError
		switch {
		case errors.As(err, &rle):
			writeJSON(w, http.StatusTooManyRequests, rateLimitResponse{
				Error:      rle.Error(),
				RetryAfter: rle.RetryAfter,
			})
		case errors.Is(err, model.ErrInvalidPassword):
			writeError(w, http.StatusUnauthorized, "invalid password")
		default:
			h.logger.Error("login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Logout destroys the current session and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			h.logger.Error("logout failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Status reports whether the request carries a live session.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	authenticated, loginTime, err := h.auth.Status(r.Context(), sessionToken(r))
	if err != nil {
		h.logger.Error("failed to read session status", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := StatusResponse{Authenticated: authenticated}
	if loginTime != nil {
		t := loginTime.UTC().Format(time.RFC3339)
		resp.LoginTime = &t
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListConnections returns all profiles without credential material.
func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.conns.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list connections", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ConnectionResponse, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, toConnectionResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateConnection persists a new profile after a best-effort probe.
func (h *Handler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req CreateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, tested, err := h.conns.Create(r.Context(), application.ConnectionInput{
		Name:           req.Name,
		Endpoint:       req.Endpoint,
		AccessKey:      req.AccessKey,
		SecretKey:      req.SecretKey,
		Region:         req.Region,
		ForcePathStyle: req.ForcePathStyle,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateConnectionResponse{Success: true, ID: id, Tested: tested})
}

// UpdateConnection applies a partial update to a profile.
func (h *Handler) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	var req UpdateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tested, err := h.conns.Update(r.Context(), r.PathValue("id"), application.ConnectionUpdate{
		Name:           req.Name,
		Endpoint:       req.Endpoint,
		AccessKey:      req.AccessKey,
		SecretKey:      req.SecretKey,
		Region:         req.Region,
		ForcePathStyle: req.ForcePathStyle,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateConnectionResponse{Success: true, Tested: tested})
}

// DeleteConnection removes a profile.
func (h *Handler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.conns.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ActivateConnection makes the profile the single active one.
func (h *Handler) ActivateConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.conns.Activate(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Disconnect clears the active profile.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.conns.Deactivate(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// TestConnection runs a stateless connectivity check against supplied
// credentials. Nothing is persisted.
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req TestConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.conns.Test(r.Context(), model.ConnectionConfig{
		Endpoint:       req.Endpoint,
		Region:         req.Region,
		AccessKey:      req.AccessKey,
		SecretKey:      req.SecretKey,
		ForcePathStyle: req.ForcePathStyle,
	})
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "connectivity test failed")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps connection service failures to HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, driven.ErrNameConflict):
		writeError(w, http.StatusBadRequest, "connection name already exists")
	case errors.Is(err, driven.ErrCapacity):
		writeError(w, http.StatusBadRequest, "connection limit reached")
	case errors.Is(err, driven.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "connection profile not found")
	default:
		h.logger.Error("connection operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// sessionToken extracts the session token from the request cookie, or returns
// an empty string when absent.
func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// clientIP derives the rate-limit key from the peer address, dropping the
// ephemeral port so repeat attempts from one host share a record.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
