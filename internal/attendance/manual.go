package attendance

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// ManualEntry is an attendance record entered by an administrator.
type ManualEntry struct {
	EmployeeID string
	CheckIn    time.Time
	CheckOut   *time.Time
	// Status may be absent or leave for a record without check-out; otherwise
	// it is derived from CheckOut.
	Status database.AttendanceStatus
	Notes  string
}

// RecordManual stores an administrator's entry. It is not subject to the
// one-active-session or one-per-day rules, but status and total hours follow
// the same rules as the automatic flow.
func (s *Service) RecordManual(ctx context.Context, entry ManualEntry) (*database.AttendanceRecord, error) {
	if entry.EmployeeID == "" {
		return nil, fmt.Errorf("%w: employee is required", ErrInvalidEntry)
	}
	if entry.CheckIn.IsZero() {
		return nil, fmt.Errorf("%w: check-in time is required", ErrInvalidEntry)
	}
	if entry.CheckOut != nil && entry.CheckOut.Before(entry.CheckIn) {
		return nil, fmt.Errorf("%w: check-out is before check-in", ErrInvalidEntry)
	}

	status, err := manualStatus(entry)
	if err != nil {
		return nil, err
	}

	e, err := s.employees.GetEmployee(ctx, entry.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if e == nil {
		return nil, ErrEmployeeNotFound
	}

	now := time.Now().UTC()
	rec := &database.AttendanceRecord{
		ID:         uuid.NewString(),
		EmployeeID: entry.EmployeeID,
		CheckIn:    entry.CheckIn.UTC(),
		Date:       database.Day(entry.CheckIn, s.loc),
		Status:     status,
		Source:     database.SourceManual,
		Notes:      strings.TrimSpace(entry.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if entry.CheckOut != nil {
		out := entry.CheckOut.UTC()
		rec.CheckOut = &out
		rec.TotalHours = database.TotalHours(rec.CheckIn, out)
	}

	if err := s.store.CreateAttendance(ctx, rec); err != nil {
		return nil, fmt.Errorf("create manual attendance: %w", err)
	}

	log.Printf("Manual attendance: employee %s on %s (%s)", entry.EmployeeID, rec.Date.Format(time.DateOnly), rec.Status)
	return rec, nil
}

func manualStatus(entry ManualEntry) (database.AttendanceStatus, error) {
	switch entry.Status {
	case "":
		if entry.CheckOut != nil {
			return database.StatusCompleted, nil
		}
		return database.StatusActive, nil
	case database.StatusActive:
		if entry.CheckOut != nil {
			return "", fmt.Errorf("%w: an active record cannot have a check-out", ErrInvalidEntry)
		}
		return database.StatusActive, nil
	case database.StatusCompleted:
		if entry.CheckOut == nil {
			return "", fmt.Errorf("%w: a completed record needs a check-out", ErrInvalidEntry)
		}
		return database.StatusCompleted, nil
	case database.StatusAbsent, database.StatusLeave:
		if entry.CheckOut != nil {
			return "", fmt.Errorf("%w: %s records have no check-out", ErrInvalidEntry, entry.Status)
		}
		return entry.Status, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, entry.Status)
}
