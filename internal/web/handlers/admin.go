package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/employees"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// AdminHandler handles employee management, manual attendance and the face audit
type AdminHandler struct {
	employees  *employees.Service
	attendance *attendance.Service
	face       *face.Service
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(emps *employees.Service, att *attendance.Service, faces *face.Service) *AdminHandler {
	return &AdminHandler{employees: emps, attendance: att, face: faces}
}

// ListEmployees lists employees, optionally filtered by ?q=.
func (h *AdminHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := h.employees.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, "list employees", err)
		return
	}
	out := make([]EmployeeResponse, 0, len(list))
	for i := range list {
		out = append(out, toEmployeeResponse(&list[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"employees": out, "count": len(out)})
}

type createEmployeeRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
	Password   string `json:"password"`
}

// CreateEmployee adds an employee.
func (h *AdminHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if !decodeJSON(w, r, &req, constants.MaxJSONBodySize) {
		return
	}
	e, err := h.employees.Create(r.Context(), employees.CreateInput{
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		Role:       database.Role(req.Role),
		Password:   req.Password,
	})
	if err != nil {
		respondServiceError(w, "create employee", err)
		return
	}
	respondJSON(w, http.StatusCreated, toEmployeeResponse(e))
}

// EmployeeAttendance returns a page of one employee's attendance.
func (h *AdminHandler) EmployeeAttendance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.employees.Get(r.Context(), id); err != nil {
		respondServiceError(w, "load employee", err)
		return
	}
	respondHistory(w, r, h.attendance, id)
}

type manualAttendanceRequest struct {
	EmployeeID string  `json:"employeeId"`
	CheckIn    string  `json:"checkIn"`
	CheckOut   *string `json:"checkOut"`
	Status     string  `json:"status"`
	Notes      string  `json:"notes"`
}

// RecordAttendance stores an attendance entry made by an administrator.
func (h *AdminHandler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var req manualAttendanceRequest
	if !decodeJSON(w, r, &req, constants.MaxJSONBodySize) {
		return
	}

	entry := attendance.ManualEntry{
		EmployeeID: req.EmployeeID,
		Status:     database.AttendanceStatus(req.Status),
		Notes:      req.Notes,
	}
	if req.CheckIn != "" {
		in, err := time.Parse(time.RFC3339, req.CheckIn)
		if err != nil {
			respondError(w, http.StatusBadRequest, "checkIn must be an RFC 3339 timestamp")
			return
		}
		entry.CheckIn = in
	}
	if req.CheckOut != nil && *req.CheckOut != "" {
		out, err := time.Parse(time.RFC3339, *req.CheckOut)
		if err != nil {
			respondError(w, http.StatusBadRequest, "checkOut must be an RFC 3339 timestamp")
			return
		}
		entry.CheckOut = &out
	}

	rec, err := h.attendance.RecordManual(r.Context(), entry)
	if err != nil {
		respondServiceError(w, "manual attendance", err)
		return
	}

	session := middleware.GetSessionFromContext(r.Context())
	if session != nil {
		logAdminAction(session.EmployeeID, "recorded manual attendance "+rec.ID+" for "+rec.EmployeeID)
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"attendance": toAttendanceResponse(rec),
	})
}

type collisionResponse struct {
	EmployeeA  string  `json:"employeeA"`
	EmployeeB  string  `json:"employeeB"`
	Similarity float64 `json:"similarity"`
}

// Collisions lists employee pairs whose faces are confusable at ?threshold=
// (default: the match threshold).
func (h *AdminHandler) Collisions(w http.ResponseWriter, r *http.Request) {
	threshold := h.face.Policy().MatchThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < -1 || t > 1 {
			respondError(w, http.StatusBadRequest, "threshold must be a number in [-1, 1]")
			return
		}
		threshold = t
	}

	pairs, err := h.face.Collisions(r.Context(), threshold, facematch.CollisionOptions{})
	if err != nil {
		respondServiceError(w, "face collisions", err)
		return
	}
	out := make([]collisionResponse, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, collisionResponse{EmployeeA: p.EmployeeA, EmployeeB: p.EmployeeB, Similarity: p.Similarity})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"threshold":  threshold,
		"collisions": out,
	})
}
