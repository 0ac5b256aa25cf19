package handlers

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// EmployeeResponse is the public view of an employee. Embeddings and
// password hashes are never serialized.
type EmployeeResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	Department        string  `json:"department"`
	Role              string  `json:"role"`
	HasRegisteredFace bool    `json:"hasRegisteredFace"`
	FaceRegisteredAt  *string `json:"faceRegisteredAt,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

func toEmployeeResponse(e *database.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:                e.ID,
		Name:              e.Name,
		Email:             e.Email,
		Department:        e.Department,
		Role:              string(e.Role),
		HasRegisteredFace: e.FaceRegisteredAt != nil,
		FaceRegisteredAt:  formatTimePtr(e.FaceRegisteredAt),
		CreatedAt:         formatTime(e.CreatedAt),
	}
}

// AttendanceResponse is the public view of an attendance record.
type AttendanceResponse struct {
	ID         string  `json:"id"`
	EmployeeID string  `json:"employee_id"`
	CheckIn    string  `json:"check_in"`
	CheckOut   *string `json:"check_out"`
	TotalHours float64 `json:"total_hours"`
	Date       string  `json:"date"`
	Status     string  `json:"status"`
	Source     string  `json:"source"`
	Notes      string  `json:"notes,omitempty"`
}

func toAttendanceResponse(rec *database.AttendanceRecord) *AttendanceResponse {
	if rec == nil {
		return nil
	}
	return &AttendanceResponse{
		ID:         rec.ID,
		EmployeeID: rec.EmployeeID,
		CheckIn:    formatTime(rec.CheckIn),
		CheckOut:   formatTimePtr(rec.CheckOut),
		TotalHours: rec.TotalHours,
		Date:       rec.Date.Format(time.DateOnly),
		Status:     string(rec.Status),
		Source:     string(rec.Source),
		Notes:      rec.Notes,
	}
}

func toAttendanceResponses(records []database.AttendanceRecord) []AttendanceResponse {
	out := make([]AttendanceResponse, 0, len(records))
	for i := range records {
		out = append(out, *toAttendanceResponse(&records[i]))
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
