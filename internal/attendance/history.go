package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// HistoryQuery selects a page of attendance records. An empty EmployeeID
// selects every employee. Zero From/To leave the range open.
type HistoryQuery struct {
	EmployeeID string
	From       time.Time
	To         time.Time
	Status     database.AttendanceStatus
	Page       int
	Limit      int
}

// HistoryPage is one page of records, newest check-in first.
type HistoryPage struct {
	Records      []database.AttendanceRecord
	Page         int
	Pages        int
	TotalRecords int
}

// History returns a page of records. Page defaults to 1 and Limit to the
// handler page size, capped at the handler maximum.
func (s *Service) History(ctx context.Context, q HistoryQuery) (*HistoryPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, q.Status)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = constants.DefaultHandlerPageSize
	}
	if q.Limit > constants.MaxHandlerPageSize {
		q.Limit = constants.MaxHandlerPageSize
	}

	dq := database.AttendanceQuery{
		EmployeeID: q.EmployeeID,
		Status:     q.Status,
		Limit:      q.Limit,
		Offset:     (q.Page - 1) * q.Limit,
	}
	if !q.From.IsZero() {
		dq.From = database.Day(q.From, s.loc)
	}
	if !q.To.IsZero() {
		dq.To = database.Day(q.To, s.loc)
	}
	if !dq.From.IsZero() && !dq.To.IsZero() && dq.To.Before(dq.From) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidEntry)
	}

	records, total, err := s.store.ListAttendance(ctx, dq)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return &HistoryPage{
		Records:      records,
		Page:         q.Page,
		Pages:        (total + q.Limit - 1) / q.Limit,
		TotalRecords: total,
	}, nil
}
