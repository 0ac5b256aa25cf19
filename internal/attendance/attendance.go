// Package attendance enforces the check-in/check-out lifecycle:
// no record, then active, then completed, at most one automatic record per
// employee per day and at most one active session per employee.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/timesource"
)

var (
	ErrAlreadyCheckedInToday = errors.New("already checked in today")
	ErrAlreadyActive         = errors.New("already checked in, please check out first")
	ErrNoActiveSession       = errors.New("no active check-in found, please check in first")
	ErrAlreadyCheckedOut     = errors.New("already checked out")
	ErrInvalidEntry          = errors.New("invalid attendance entry")
	ErrEmployeeNotFound      = errors.New("employee not found")
)

// Service runs the attendance state machine against a store. Timestamps come
// from clock; calendar days are taken in loc.
type Service struct {
	store     database.AttendanceWriter
	employees database.EmployeeReader
	clock     timesource.Source
	loc       *time.Location
}

// NewService creates an attendance service. A nil loc means UTC.
func NewService(store database.AttendanceWriter, employees database.EmployeeReader, clock timesource.Source, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, employees: employees, clock: clock, loc: loc}
}

// Location returns the time zone attendance days are derived in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// CheckIn opens a session at the clock's current time.
func (s *Service) CheckIn(ctx context.Context, employeeID string) (*database.AttendanceRecord, error) {
	return s.CheckInAt(ctx, employeeID, s.clock.Now(ctx))
}

// CheckInAt opens a session at ts for an existing employee. A record on the
// same day is checked before an open session; the store's unique constraints catch races
// between the checks and the insert.
func (s *Service) CheckInAt(ctx context.Context, employeeID string, ts time.Time) (*database.AttendanceRecord, error) {
	e, err := s.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if e == nil {
		return nil, ErrEmployeeNotFound
	}

	day := database.Day(ts, s.loc)

	existing, err := s.store.FindByDay(ctx, employeeID, day)
	if err != nil {
		return nil, fmt.Errorf("check today's attendance: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyCheckedInToday
	}

	active, err := s.store.FindActive(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("check active attendance: %w", err)
	}
	if active != nil {
		return nil, ErrAlreadyActive
	}

	rec := database.NewCheckIn(employeeID, ts, s.loc)
	if err := s.store.CreateAttendance(ctx, rec); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateDay):
			return nil, ErrAlreadyCheckedInToday
		case errors.Is(err, database.ErrActiveExists):
			return nil, ErrAlreadyActive
		}
		return nil, fmt.Errorf("create attendance: %w", err)
	}

	log.Printf("Check-in: employee %s at %s (day %s)", employeeID, rec.CheckIn.Format(time.RFC3339), rec.Date.Format(time.DateOnly))
	return rec, nil
}

// CheckOut closes the active session at the clock's current time.
func (s *Service) CheckOut(ctx context.Context, employeeID string) (*database.AttendanceRecord, error) {
	return s.CheckOutAt(ctx, employeeID, s.clock.Now(ctx))
}

// CheckOutAt closes the latest active session at ts and computes the total
// hours. Manual entries can leave older sessions open; they stay untouched.
func (s *Service) CheckOutAt(ctx context.Context, employeeID string, ts time.Time) (*database.AttendanceRecord, error) {
	rec, err := s.store.FindActive(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("find active attendance: %w", err)
	}
	if rec == nil {
		today, err := s.store.FindByDay(ctx, employeeID, database.Day(ts, s.loc))
		if err != nil {
			return nil, fmt.Errorf("find today's attendance: %w", err)
		}
		if today != nil && today.CheckOut != nil {
			return nil, ErrAlreadyCheckedOut
		}
		return nil, ErrNoActiveSession
	}
	if rec.CheckOut != nil {
		return nil, ErrAlreadyCheckedOut
	}

	out := ts.UTC()
	hours := database.TotalHours(rec.CheckIn, out)
	if err := s.store.CompleteAttendance(ctx, rec.ID, out, hours); err != nil {
		switch {
		case errors.Is(err, database.ErrAlreadyCompleted):
			return nil, ErrAlreadyCheckedOut
		case errors.Is(err, database.ErrNotFound):
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("complete attendance: %w", err)
	}

	rec.CheckOut = &out
	rec.TotalHours = hours
	rec.Status = database.StatusCompleted
	rec.UpdatedAt = time.Now().UTC()

	log.Printf("Check-out: employee %s at %s (%.2fh)", employeeID, out.Format(time.RFC3339), hours)
	return rec, nil
}

// CurrentStatus is an employee's attendance at a moment.
type CurrentStatus struct {
	Now         time.Time
	Active      *database.AttendanceRecord
	ActiveHours float64 // running hours of the active session
	Today       *database.AttendanceRecord
}

// IsActive reports whether the employee is checked in.
func (c *CurrentStatus) IsActive() bool {
	return c.Active != nil
}

// Status returns the active session, if any, and today's record.
func (s *Service) Status(ctx context.Context, employeeID string) (*CurrentStatus, error) {
	now := s.clock.Now(ctx)

	active, err := s.store.FindActive(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("find active attendance: %w", err)
	}
	today, err := s.store.FindByDay(ctx, employeeID, database.Day(now, s.loc))
	if err != nil {
		return nil, fmt.Errorf("find today's attendance: %w", err)
	}

	st := &CurrentStatus{Now: now, Active: active, Today: today}
	if active != nil {
		st.ActiveHours = database.TotalHours(active.CheckIn, now)
	}
	return st, nil
}

// FormatDuration renders d as "Xh Ym", truncating to whole minutes.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// Duration returns the worked duration of a completed record, zero otherwise.
func Duration(rec *database.AttendanceRecord) time.Duration {
	if rec == nil || rec.CheckOut == nil {
		return 0
	}
	return rec.CheckOut.Sub(rec.CheckIn)
}
