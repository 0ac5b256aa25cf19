package handlers

import (
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// FaceHandler handles face registration and verification
type FaceHandler struct {
	face           *face.Service
	sessionManager *middleware.SessionManager
}

// NewFaceHandler creates a new face handler
func NewFaceHandler(svc *face.Service, sm *middleware.SessionManager) *FaceHandler {
	return &FaceHandler{face: svc, sessionManager: sm}
}

type imageRequest struct {
	Image string `json:"image"`
}

// readImage decodes an {image} body. On failure it writes the response.
func readImage(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req imageRequest
	if !decodeJSON(w, r, &req, constants.MaxCaptureBodySize) {
		return "", false
	}
	if strings.TrimSpace(req.Image) == "" {
		respondError(w, http.StatusBadRequest, msgImageRequired)
		return "", false
	}
	return req.Image, true
}

// VerifyResponse is the verification outcome. On a match the employee
// fields and confidence are set and a session is opened for the employee.
type VerifyResponse struct {
	Matched             bool     `json:"matched"`
	EmployeeID          string   `json:"employeeId,omitempty"`
	Name                string   `json:"name,omitempty"`
	Email               string   `json:"email,omitempty"`
	Department          string   `json:"department,omitempty"`
	Confidence          *float64 `json:"confidence,omitempty"`
	BestScore           float64  `json:"bestScore"`
	DetectionConfidence float64  `json:"detectionConfidence"`
	SessionID           string   `json:"session_id,omitempty"`
	ExpiresAt           string   `json:"expires_at,omitempty"`
	Error               string   `json:"error,omitempty"`
}

// Verify matches a capture against all registered faces. A non-match
// is answered with 401 and the best score.
func (h *FaceHandler) Verify(w http.ResponseWriter, r *http.Request) {
	image, ok := readImage(w, r)
	if !ok {
		return
	}

	res, err := h.face.Verify(r.Context(), image)
	if err != nil {
		respondServiceError(w, "face verify", err)
		return
	}

	if !res.Matched {
		respondJSON(w, http.StatusUnauthorized, VerifyResponse{
			Matched:             false,
			BestScore:           res.BestScore,
			DetectionConfidence: res.Confidence,
			Error:               msgNotRecognized,
		})
		return
	}

	session, err := h.sessionManager.CreateSession(r.Context(), res.Employee.ID, res.Employee.Role)
	if err != nil {
		respondServiceError(w, "create session", err)
		return
	}
	h.sessionManager.SetSessionCookie(w, r, session)

	respondJSON(w, http.StatusOK, VerifyResponse{
		Matched:             true,
		EmployeeID:          res.Employee.ID,
		Name:                res.Employee.Name,
		Email:               res.Employee.Email,
		Department:          res.Employee.Department,
		Confidence:          &res.Score,
		BestScore:           res.BestScore,
		DetectionConfidence: res.Confidence,
		SessionID:           session.ID,
		ExpiresAt:           formatTime(session.ExpiresAt),
	})
}

// Register stores the face of the signed-in employee.
func (h *FaceHandler) Register(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	image, ok := readImage(w, r)
	if !ok {
		return
	}

	res, err := h.face.Register(r.Context(), session.EmployeeID, image)
	if err != nil {
		respondServiceError(w, "face register", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Face registered successfully",
		"confidence":   res.Confidence,
		"registeredAt": formatTime(res.RegisteredAt),
	})
}

// Unregister removes the face of the signed-in employee.
func (h *FaceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if err := h.face.Unregister(r.Context(), session.EmployeeID); err != nil {
		respondServiceError(w, "face unregister", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Face registration removed successfully",
	})
}

// Status reports whether the signed-in employee has a registered face.
func (h *FaceHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	st, err := h.face.Status(r.Context(), session.EmployeeID)
	if err != nil {
		respondServiceError(w, "face status", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"hasRegisteredFace": st.HasRegisteredFace,
		"registeredAt":      formatTimePtr(st.RegisteredAt),
	})
}
