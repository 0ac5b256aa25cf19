package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Check in, check out and inspect attendance",
}

var attendanceCheckinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Check an employee in now",
	RunE:  runAttendanceCheckin,
}

var attendanceCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Check an employee out now",
	RunE:  runAttendanceCheckout,
}

var attendanceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an employee is checked in",
	RunE:  runAttendanceStatus,
}

var attendanceHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List attendance records",
	Long: `List attendance records, newest first.

Examples:
  face-attendance attendance history --employee jana@example.com
  face-attendance attendance history --from 2026-03-01 --to 2026-03-31 --limit 100`,
	RunE: runAttendanceHistory,
}

var attendanceRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Enter an attendance record manually",
	Long: `Enter an attendance record on behalf of an employee, e.g. for a forgotten
check-out or a day of leave. Manual records do not count against the
one-record-per-day rule.

Examples:
  face-attendance attendance record --employee jana@example.com \
    --checkin 2026-03-02T08:00:00+01:00 --checkout 2026-03-02T16:30:00+01:00

  face-attendance attendance record --employee jana@example.com \
    --checkin 2026-03-03T08:00:00+01:00 --status leave --notes "Vacation"`,
	RunE: runAttendanceRecord,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceCheckinCmd, attendanceCheckoutCmd, attendanceStatusCmd,
		attendanceHistoryCmd, attendanceRecordCmd)

	for _, c := range []*cobra.Command{attendanceCheckinCmd, attendanceCheckoutCmd, attendanceStatusCmd, attendanceRecordCmd} {
		c.Flags().String("employee", "", "Employee ID or email (required)")
		_ = c.MarkFlagRequired("employee")
	}

	attendanceHistoryCmd.Flags().String("employee", "", "Employee ID or email (all employees if empty)")
	attendanceHistoryCmd.Flags().String("from", "", "First day, YYYY-MM-DD")
	attendanceHistoryCmd.Flags().String("to", "", "Last day, YYYY-MM-DD")
	attendanceHistoryCmd.Flags().String("status", "", "Only records with this status")
	attendanceHistoryCmd.Flags().Int("page", 1, "Page number")
	attendanceHistoryCmd.Flags().Int("limit", 0, "Records per page")
	attendanceHistoryCmd.Flags().Bool("json", false, "Output as JSON")

	attendanceRecordCmd.Flags().String("checkin", "", "Check-in time, RFC 3339 (required)")
	attendanceRecordCmd.Flags().String("checkout", "", "Check-out time, RFC 3339")
	attendanceRecordCmd.Flags().String("status", "", "absent or leave for a record without check-out")
	attendanceRecordCmd.Flags().String("notes", "", "Free-form notes")
	_ = attendanceRecordCmd.MarkFlagRequired("checkin")
}

// RecordOutput is the JSON form of an attendance record.
type RecordOutput struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employee_id"`
	Date       string     `json:"date"`
	CheckIn    time.Time  `json:"check_in"`
	CheckOut   *time.Time `json:"check_out,omitempty"`
	TotalHours float64    `json:"total_hours"`
	Status     string     `json:"status"`
	Source     string     `json:"source"`
	Notes      string     `json:"notes,omitempty"`
}

func toRecordOutput(r *database.AttendanceRecord) RecordOutput {
	return RecordOutput{
		ID:         r.ID,
		EmployeeID: r.EmployeeID,
		Date:       r.Date.Format(time.DateOnly),
		CheckIn:    r.CheckIn,
		CheckOut:   r.CheckOut,
		TotalHours: r.TotalHours,
		Status:     string(r.Status),
		Source:     string(r.Source),
		Notes:      r.Notes,
	}
}

func runAttendanceCheckin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, closeFn, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	e, err := resolveEmployee(ctx, svc.store, mustGetString(cmd, "employee"))
	if err != nil {
		return err
	}
	rec, err := svc.attendance.CheckIn(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("check-in for %s: %w", e.Email, err)
	}
	loc := svc.attendance.Location()
	fmt.Printf("Checked in %s at %s\n", e.Name, rec.CheckIn.In(loc).Format("15:04"))
	return nil
}

func runAttendanceCheckout(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, closeFn, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	e, err := resolveEmployee(ctx, svc.store, mustGetString(cmd, "employee"))
	if err != nil {
		return err
	}
	rec, err := svc.attendance.CheckOut(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("check-out for %s: %w", e.Email, err)
	}
	loc := svc.attendance.Location()
	fmt.Printf("Checked out %s at %s, worked %s\n", e.Name,
		rec.CheckOut.In(loc).Format("15:04"), attendance.FormatDuration(attendance.Duration(rec)))
	return nil
}

func runAttendanceStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, closeFn, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	e, err := resolveEmployee(ctx, svc.store, mustGetString(cmd, "employee"))
	if err != nil {
		return err
	}
	st, err := svc.attendance.Status(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("status for %s: %w", e.Email, err)
	}

	loc := svc.attendance.Location()
	switch {
	case st.IsActive():
		fmt.Printf("%s is checked in since %s (%.2fh)\n", e.Name,
			st.Active.CheckIn.In(loc).Format("2006-01-02 15:04"), st.ActiveHours)
	case st.Today != nil:
		fmt.Printf("%s is done for today: %s, %.2fh\n", e.Name, st.Today.Status, st.Today.TotalHours)
	default:
		fmt.Printf("%s has not checked in today\n", e.Name)
	}
	return nil
}

func runAttendanceHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, closeFn, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	loc := svc.attendance.Location()
	q := attendance.HistoryQuery{
		Status: database.AttendanceStatus(mustGetString(cmd, "status")),
		Page:   mustGetInt(cmd, "page"),
		Limit:  mustGetInt(cmd, "limit"),
	}
	if ref := mustGetString(cmd, "employee"); ref != "" {
		e, err := resolveEmployee(ctx, svc.store, ref)
		if err != nil {
			return err
		}
		q.EmployeeID = e.ID
	}
	if q.From, err = parseDayFlag(cmd, "from", loc); err != nil {
		return err
	}
	if q.To, err = parseDayFlag(cmd, "to", loc); err != nil {
		return err
	}

	page, err := svc.attendance.History(ctx, q)
	if err != nil {
		return fmt.Errorf("listing attendance: %w", err)
	}

	if mustGetBool(cmd, "json") {
		out := struct {
			Records      []RecordOutput `json:"records"`
			Page         int            `json:"page"`
			Pages        int            `json:"pages"`
			TotalRecords int            `json:"total_records"`
		}{Records: []RecordOutput{}, Page: page.Page, Pages: page.Pages, TotalRecords: page.TotalRecords}
		for i := range page.Records {
			out.Records = append(out.Records, toRecordOutput(&page.Records[i]))
		}
		return outputJSON(out)
	}

	if len(page.Records) == 0 {
		fmt.Println("No attendance records found")
		return nil
	}
	for _, r := range page.Records {
		out := "--:--"
		if r.CheckOut != nil {
			out = r.CheckOut.In(loc).Format("15:04")
		}
		fmt.Printf("%s  %-36s  %s-%s  %6.2fh  %-9s  %s\n", r.Date.Format(time.DateOnly), r.EmployeeID,
			r.CheckIn.In(loc).Format("15:04"), out, r.TotalHours, r.Status, r.Source)
	}
	fmt.Printf("\nPage %d of %d (%d records)\n", page.Page, page.Pages, page.TotalRecords)
	return nil
}

func runAttendanceRecord(cmd *cobra.Command, args []string) error {
	checkIn, err := time.Parse(time.RFC3339, mustGetString(cmd, "checkin"))
	if err != nil {
		return fmt.Errorf("invalid --checkin: %w", err)
	}
	var checkOut *time.Time
	if s := mustGetString(cmd, "checkout"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid --checkout: %w", err)
		}
		checkOut = &t
	}

	ctx := context.Background()
	svc, closeFn, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	e, err := resolveEmployee(ctx, svc.store, mustGetString(cmd, "employee"))
	if err != nil {
		return err
	}
	rec, err := svc.attendance.RecordManual(ctx, attendance.ManualEntry{
		EmployeeID: e.ID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Status:     database.AttendanceStatus(mustGetString(cmd, "status")),
		Notes:      mustGetString(cmd, "notes"),
	})
	if err != nil {
		return fmt.Errorf("recording attendance for %s: %w", e.Email, err)
	}
	fmt.Printf("Recorded %s attendance for %s on %s (%.2fh)\n", rec.Status, e.Name,
		rec.Date.Format(time.DateOnly), rec.TotalHours)
	return nil
}

func parseDayFlag(cmd *cobra.Command, name string, loc *time.Location) (time.Time, error) {
	s := mustGetString(cmd, name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q, want YYYY-MM-DD", name, s)
	}
	return t, nil
}
