package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/employees"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// AuthHandler handles password login and session endpoints
type AuthHandler struct {
	employees      *employees.Service
	sessionManager *middleware.SessionManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(emps *employees.Service, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{
		employees:      emps,
		sessionManager: sm,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success   bool              `json:"success"`
	SessionID string            `json:"session_id,omitempty"`
	ExpiresAt string            `json:"expires_at,omitempty"`
	Employee  *EmployeeResponse `json:"employee,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Login handles email/password login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req, constants.MaxJSONBodySize) {
		return
	}

	// Require both email and password
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	e, err := h.employees.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		status, msg := errorResponse(err)
		if status == http.StatusUnauthorized {
			respondJSON(w, status, LoginResponse{Success: false, Error: msg})
			return
		}
		respondServiceError(w, "login", err)
		return
	}

	session, err := h.sessionManager.CreateSession(r.Context(), e.ID, e.Role)
	if err != nil {
		respondServiceError(w, "create session", err)
		return
	}
	h.sessionManager.SetSessionCookie(w, r, session)

	emp := toEmployeeResponse(e)
	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: session.ID,
		ExpiresAt: formatTime(session.ExpiresAt),
		Employee:  &emp,
	})
}

// Logout handles logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(r.Context(), session.ID)
	}
	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool              `json:"authenticated"`
	ExpiresAt     string            `json:"expires_at,omitempty"`
	Employee      *EmployeeResponse `json:"employee,omitempty"`
}

// Status reports whether the request carries a valid session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}
	resp := StatusResponse{
		Authenticated: true,
		ExpiresAt:     formatTime(session.ExpiresAt),
	}
	if e, err := h.employees.Get(r.Context(), session.EmployeeID); err == nil {
		emp := toEmployeeResponse(e)
		resp.Employee = &emp
	}
	respondJSON(w, http.StatusOK, resp)
}
