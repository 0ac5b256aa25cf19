package handlers

import (
	"math"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// AttendanceHandler handles the check-in/check-out endpoints of the signed-in employee
type AttendanceHandler struct {
	attendance *attendance.Service
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{attendance: svc}
}

// CheckIn opens a session for the signed-in employee.
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	rec, err := h.attendance.CheckIn(r.Context(), session.EmployeeID)
	if err != nil {
		respondServiceError(w, "check-in", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"message":    "Checked in successfully",
		"attendance": toAttendanceResponse(rec),
	})
}

// CheckOut closes the signed-in employee's active session.
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	rec, err := h.attendance.CheckOut(r.Context(), session.EmployeeID)
	if err != nil {
		respondServiceError(w, "check-out", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Checked out successfully",
		"attendance": toAttendanceResponse(rec),
		"duration":   attendance.FormatDuration(attendance.Duration(rec)),
	})
}

type activeAttendance struct {
	ID       string  `json:"id"`
	CheckIn  string  `json:"check_in"`
	Duration float64 `json:"duration"` // hours so far
}

// Status returns the active session and today's record.
func (h *AttendanceHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	st, err := h.attendance.Status(r.Context(), session.EmployeeID)
	if err != nil {
		respondServiceError(w, "attendance status", err)
		return
	}

	var active *activeAttendance
	if st.Active != nil {
		active = &activeAttendance{
			ID:       st.Active.ID,
			CheckIn:  formatTime(st.Active.CheckIn),
			Duration: math.Round(st.ActiveHours*100) / 100,
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"isActive":         st.IsActive(),
		"activeAttendance": active,
		"todayAttendance":  toAttendanceResponse(st.Today),
	})
}

// History returns the signed-in employee's records.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	respondHistory(w, r, h.attendance, session.EmployeeID)
}

// respondHistory serves a page of an employee's attendance from the
// from/to/page/limit query parameters.
func respondHistory(w http.ResponseWriter, r *http.Request, svc *attendance.Service, employeeID string) {
	from, err := parseDateParam(r, "from", svc.Location())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(r, "to", svc.Location())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, limit := pagination(r)

	result, err := svc.History(r.Context(), attendance.HistoryQuery{
		EmployeeID: employeeID,
		From:       from,
		To:         to,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		respondServiceError(w, "attendance history", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"records": toAttendanceResponses(result.Records),
		"pagination": map[string]int{
			"page":         result.Page,
			"pages":        result.Pages,
			"totalRecords": result.TotalRecords,
		},
	})
}
