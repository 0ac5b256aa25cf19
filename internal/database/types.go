package database

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is an employee's authorization role.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// AttendanceStatus is the lifecycle state of an attendance record.
type AttendanceStatus string

const (
	StatusActive    AttendanceStatus = "active"
	StatusCompleted AttendanceStatus = "completed"
	StatusAbsent    AttendanceStatus = "absent"
	StatusLeave     AttendanceStatus = "leave"
)

// Valid reports whether s is a known status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusAbsent, StatusLeave:
		return true
	}
	return false
}

// RecordSource tells whether a record came from the check-in flow or an administrator.
type RecordSource string

const (
	SourceAuto   RecordSource = "auto"
	SourceManual RecordSource = "manual"
)

// MaxNameLength is the longest employee name accepted.
const MaxNameLength = 50

// Validation errors returned by the constructors in this file.
var (
	ErrInvalidName       = errors.New("name is required and must be at most 50 characters")
	ErrInvalidEmail      = errors.New("a valid email is required")
	ErrInvalidDepartment = errors.New("department is required")
	ErrInvalidRole       = errors.New("role must be employee, manager or admin")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Employee is an employee identity record. FaceEmbedding is either empty or
// exactly the configured dimension, and FaceRegisteredAt is set iff it is non-empty.
type Employee struct {
	ID               string
	Name             string
	Email            string
	Department       string
	Role             Role
	PasswordHash     string
	FaceEmbedding    []float32
	FaceRegisteredAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewEmployee validates the identity fields and returns an employee with a fresh ID.
func NewEmployee(name, email, department string, role Role) (*Employee, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxNameLength {
		return nil, ErrInvalidName
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	department = strings.TrimSpace(department)
	if department == "" {
		return nil, ErrInvalidDepartment
	}
	if role == "" {
		role = RoleEmployee
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	now := time.Now().UTC()
	return &Employee{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		Department: department,
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// NormalizeEmail lower-cases and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// HasFace reports whether the employee has a registered face embedding.
func (e *Employee) HasFace() bool {
	return len(e.FaceEmbedding) > 0
}

// IsAdmin reports whether the employee may use administrative endpoints.
func (e *Employee) IsAdmin() bool {
	return e.Role == RoleAdmin
}

// SetFace replaces the face embedding. The slice is copied.
func (e *Employee) SetFace(embedding []float32, at time.Time, dim int) error {
	if err := ValidateEmbedding(embedding, dim); err != nil {
		return err
	}
	e.FaceEmbedding = append([]float32(nil), embedding...)
	registeredAt := at.UTC()
	e.FaceRegisteredAt = &registeredAt
	e.UpdatedAt = registeredAt
	return nil
}

// ClearFace removes the face embedding and its registration timestamp.
func (e *Employee) ClearFace() {
	e.FaceEmbedding = nil
	e.FaceRegisteredAt = nil
	e.UpdatedAt = time.Now().UTC()
}

// ValidateEmbedding checks that an embedding has exactly dim finite components.
func ValidateEmbedding(embedding []float32, dim int) error {
	if len(embedding) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), dim)
	}
	for i, v := range embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("embedding component %d is not finite", i)
		}
	}
	return nil
}

// FaceCandidate pairs an employee with the embedding to match against.
type FaceCandidate struct {
	EmployeeID string
	Embedding  []float32
}

// AttendanceRecord is one check-in/check-out cycle for an employee.
type AttendanceRecord struct {
	ID         string
	EmployeeID string
	CheckIn    time.Time
	CheckOut   *time.Time
	TotalHours float64
	Date       time.Time // calendar day, midnight UTC
	Status     AttendanceStatus
	Source     RecordSource
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewCheckIn builds the active record created by a check-in at ts.
// The record's day is ts's calendar day in loc.
func NewCheckIn(employeeID string, ts time.Time, loc *time.Location) *AttendanceRecord {
	now := time.Now().UTC()
	return &AttendanceRecord{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		CheckIn:    ts.UTC(),
		Date:       Day(ts, loc),
		Status:     StatusActive,
		Source:     SourceAuto,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsActive reports whether the record is an open session.
func (a *AttendanceRecord) IsActive() bool {
	return a.Status == StatusActive
}

// Day returns the calendar day of ts in loc, expressed as midnight UTC.
func Day(ts time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := ts.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TotalHours returns the duration between checkIn and checkOut in hours,
// rounded to two decimal places. A negative duration yields 0.
func TotalHours(checkIn, checkOut time.Time) float64 {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	return math.Round(d.Hours()*100) / 100
}
