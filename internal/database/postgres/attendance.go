package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
// Partial unique indexes back the automatic flow's per-day and
// one-active-session rules.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `id, employee_id, check_in, check_out, total_hours::float8,
	work_date, status, source, notes, created_at, updated_at`

func scanAttendance(scanner interface{ Scan(...any) error }) (*database.AttendanceRecord, error) {
	var (
		rec      database.AttendanceRecord
		checkOut sql.NullTime
		status   string
		source   string
	)
	err := scanner.Scan(
		&rec.ID, &rec.EmployeeID, &rec.CheckIn, &checkOut, &rec.TotalHours,
		&rec.Date, &status, &source, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.CheckIn = rec.CheckIn.UTC()
	y, m, d := rec.Date.Date()
	rec.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if checkOut.Valid {
		out := checkOut.Time.UTC()
		rec.CheckOut = &out
	}
	rec.Status = database.AttendanceStatus(status)
	rec.Source = database.RecordSource(source)
	return &rec, nil
}

func (r *AttendanceRepository) queryOne(ctx context.Context, where string, args ...any) (*database.AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+attendanceColumns+" FROM attendance WHERE "+where+" LIMIT 1", args...)
	rec, err := scanAttendance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByDay returns any record of the employee on day, nil if none.
func (r *AttendanceRepository) FindByDay(ctx context.Context, employeeID string, day time.Time) (*database.AttendanceRecord, error) {
	rec, err := r.queryOne(ctx, "employee_id = $1 AND work_date = $2::date", employeeID, day.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("find attendance by day: %w", err)
	}
	return rec, nil
}

// FindActive returns the employee's active record, nil if none.
func (r *AttendanceRepository) FindActive(ctx context.Context, employeeID string) (*database.AttendanceRecord, error) {
	rec, err := r.queryOne(ctx, "employee_id = $1 AND status = 'active' ORDER BY check_in DESC", employeeID)
	if err != nil {
		return nil, fmt.Errorf("find active attendance: %w", err)
	}
	return rec, nil
}

// ListAttendance returns matching records, newest check-in first, and the total count.
func (r *AttendanceRepository) ListAttendance(ctx context.Context, q database.AttendanceQuery) ([]database.AttendanceRecord, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.EmployeeID != "" {
		add("employee_id = $%d", q.EmployeeID)
	}
	if !q.From.IsZero() {
		add("work_date >= $%d::date", q.From.Format(time.DateOnly))
	}
	if !q.To.IsZero() {
		add("work_date <= $%d::date", q.To.Format(time.DateOnly))
	}
	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM attendance"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}

	query := "SELECT " + attendanceColumns + " FROM attendance" + where + " ORDER BY check_in DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, total, nil
}

// CreateAttendance inserts a record.
func (r *AttendanceRepository) CreateAttendance(ctx context.Context, rec *database.AttendanceRecord) error {
	query := `
		INSERT INTO attendance (id, employee_id, check_in, check_out, total_hours, work_date,
		                        status, source, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11)
	`
	var checkOut sql.NullTime
	if rec.CheckOut != nil {
		checkOut = sql.NullTime{Time: rec.CheckOut.UTC(), Valid: true}
	}
	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.EmployeeID, rec.CheckIn.UTC(), checkOut, rec.TotalHours, rec.Date.Format(time.DateOnly),
		string(rec.Status), string(rec.Source), rec.Notes, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", translateConflict(err))
	}
	return nil
}

// CompleteAttendance closes a record that has no check-out yet.
func (r *AttendanceRepository) CompleteAttendance(ctx context.Context, id string, checkOut time.Time, totalHours float64) error {
	query := `
		UPDATE attendance
		SET check_out = $2, total_hours = $3, status = 'completed', updated_at = NOW()
		WHERE id = $1 AND check_out IS NULL
	`
	result, err := r.pool.Exec(ctx, query, id, checkOut.UTC(), totalHours)
	if err != nil {
		return fmt.Errorf("complete attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Nothing updated: either the record is gone or it was already closed.
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM attendance WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("check attendance exists: %w", err)
	}
	if !exists {
		return database.ErrNotFound
	}
	return database.ErrAlreadyCompleted
}

var _ database.AttendanceWriter = (*AttendanceRepository)(nil)
