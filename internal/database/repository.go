package database

import (
	"context"
	"errors"
	"time"
)

// Storage-level conflicts. Repositories translate backend constraint
// violations into these so callers never see driver errors.
var (
	// ErrNotFound is returned by mutations targeting a missing row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateDay means an automatic record already exists for (employee, day).
	ErrDuplicateDay = errors.New("attendance record already exists for this day")
	// ErrActiveExists means the employee already has an active automatic record.
	ErrActiveExists = errors.New("active attendance record already exists")
	// ErrAlreadyCompleted means the record already has a check-out time.
	ErrAlreadyCompleted = errors.New("attendance record already completed")
	// ErrDuplicateEmail means another employee uses the same email.
	ErrDuplicateEmail = errors.New("email already in use")
)

// EmployeeReader provides read-only access to employee identity records
type EmployeeReader interface {
	// GetEmployee retrieves an employee by ID, returns nil if not found
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	// GetEmployeeByEmail retrieves an employee by normalized email, returns nil if not found
	GetEmployeeByEmail(ctx context.Context, email string) (*Employee, error)
	// ListEmployees returns all employees ordered by name. Embeddings are not loaded.
	ListEmployees(ctx context.Context) ([]Employee, error)
	// ListFaceCandidates returns every employee with a non-empty face embedding,
	// fetched fresh on each call.
	ListFaceCandidates(ctx context.Context) ([]FaceCandidate, error)
}

// EmployeeWriter provides write access to employee identity records
type EmployeeWriter interface {
	EmployeeReader

	// CreateEmployee stores a new employee. Returns ErrDuplicateEmail on email conflict.
	CreateEmployee(ctx context.Context, e *Employee) error

	// UpsertDirectoryEmployee creates or updates name/department of the employee with e.Email.
	// Returns true when a new employee was created.
	UpsertDirectoryEmployee(ctx context.Context, e *Employee) (bool, error)

	// SetFaceEmbedding replaces the face embedding and registration time in a single write.
	// Returns ErrNotFound if the employee does not exist.
	SetFaceEmbedding(ctx context.Context, id string, embedding []float32, registeredAt time.Time) error

	// ClearFaceEmbedding empties the embedding and clears the registration time.
	// Returns ErrNotFound if the employee does not exist.
	ClearFaceEmbedding(ctx context.Context, id string) error
}

// AttendanceQuery filters attendance history. Zero From/To means unbounded.
type AttendanceQuery struct {
	EmployeeID string
	From       time.Time // inclusive day
	To         time.Time // inclusive day
	Status     AttendanceStatus
	Limit      int
	Offset     int
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// FindByDay returns any record of the employee on the given day, nil if none
	FindByDay(ctx context.Context, employeeID string, day time.Time) (*AttendanceRecord, error)
	// FindActive returns the employee's active record, nil if none
	FindActive(ctx context.Context, employeeID string) (*AttendanceRecord, error)
	// ListAttendance returns matching records, newest check-in first, and the total count
	ListAttendance(ctx context.Context, q AttendanceQuery) ([]AttendanceRecord, int, error)
}

// AttendanceWriter provides write access to attendance records
type AttendanceWriter interface {
	AttendanceReader

	// CreateAttendance inserts a record. Automatic records are subject to the
	// (employee, day) and one-active backstops: ErrDuplicateDay, ErrActiveExists.
	CreateAttendance(ctx context.Context, rec *AttendanceRecord) error

	// CompleteAttendance sets check-out, total hours and completed status on a
	// record that has no check-out yet. Returns ErrAlreadyCompleted if it has
	// one, ErrNotFound if the record does not exist.
	CompleteAttendance(ctx context.Context, id string, checkOut time.Time, totalHours float64) error
}

// StoredSession is a persisted web session.
type StoredSession struct {
	ID         string
	EmployeeID string
	Role       Role
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// SessionRepository persists web sessions across restarts
type SessionRepository interface {
	Save(ctx context.Context, s StoredSession) error
	// Get returns nil if the session does not exist or has expired
	Get(ctx context.Context, id string) (*StoredSession, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
