package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/employees"
	"github.com/kozaktomas/face-attendance/internal/face"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// Actionable messages shown to kiosk users.
const (
	msgLowConfidence      = "Face detection confidence too low. Please ensure good lighting and face the camera directly."
	msgNoFace             = "No face detected. Please try again."
	msgServiceUnavailable = "Face recognition service unavailable. Please contact administrator."
	msgNotRecognized      = "Face not recognized. Please contact administrator."
	msgNoRegisteredFaces  = "No registered faces found in system"
	msgImageRequired      = "image is required"
	msgInternal           = "internal server error"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-limited JSON body into dst. On failure it writes
// the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// errorResponse maps a service error to a status code and a message the
// user can act on.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, face.ErrLowConfidence):
		return http.StatusBadRequest, msgLowConfidence
	case errors.Is(err, embedding.ErrNoFaceDetected):
		return http.StatusBadRequest, msgNoFace
	case errors.Is(err, embedding.ErrInvalidImage):
		return http.StatusBadRequest, "Invalid image. Please capture a new photo."
	case errors.Is(err, embedding.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, msgServiceUnavailable
	case errors.Is(err, face.ErrNoRegisteredFaces):
		return http.StatusNotFound, msgNoRegisteredFaces
	case errors.Is(err, face.ErrInvalidEmbedding):
		return http.StatusBadRequest, "Invalid face embedding"
	case errors.Is(err, face.ErrNoRegistration):
		return http.StatusBadRequest, "No registered face found"
	case errors.Is(err, face.ErrEmployeeNotFound),
		errors.Is(err, attendance.ErrEmployeeNotFound),
		errors.Is(err, employees.ErrNotFound):
		return http.StatusNotFound, "Employee not found"
	case errors.Is(err, attendance.ErrAlreadyCheckedInToday):
		return http.StatusBadRequest, "Already checked in today"
	case errors.Is(err, attendance.ErrAlreadyActive):
		return http.StatusBadRequest, "Already checked in. Please check out first."
	case errors.Is(err, attendance.ErrNoActiveSession):
		return http.StatusBadRequest, "No active check-in found. Please check in first."
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		return http.StatusBadRequest, "Already checked out"
	case errors.Is(err, attendance.ErrInvalidEntry):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, database.ErrDuplicateEmail):
		return http.StatusBadRequest, "Email already in use"
	case errors.Is(err, database.ErrInvalidName),
		errors.Is(err, database.ErrInvalidEmail),
		errors.Is(err, database.ErrInvalidDepartment),
		errors.Is(err, database.ErrInvalidRole),
		errors.Is(err, employees.ErrWeakPassword):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, employees.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	}
	return http.StatusInternalServerError, msgInternal
}

// respondServiceError writes the mapped error response. Unexpected errors
// are logged with op since the client only sees a generic message.
func respondServiceError(w http.ResponseWriter, op string, err error) {
	status, msg := errorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s: %v", op, err)
	}
	respondError(w, status, msg)
}

// pagination reads page and limit query parameters.
func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = constants.DefaultHandlerPageSize
	}
	if limit > constants.MaxHandlerPageSize {
		limit = constants.MaxHandlerPageSize
	}
	return page, limit
}

// parseDateParam parses an optional YYYY-MM-DD query parameter as a day in loc.
func parseDateParam(r *http.Request, name string, loc *time.Location) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return time.Time{}, errors.New(name + " must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// logAdminAction records an administrative change.
func logAdminAction(adminID, action string) {
	log.Printf("Admin %s %s", adminID, sanitizeForLog(action))
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
