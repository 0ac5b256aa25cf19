package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/employees"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var employeeCmd = &cobra.Command{
	Use:   "employee",
	Short: "Manage employees",
}

var employeeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an employee",
	Long: `Create an employee.

A password is only needed for accounts that sign in to the admin API or
register their own face; kiosk users identify by face alone.

Examples:
  face-attendance employee create --name "Jana Nováková" --email jana@example.com --department Sales
  face-attendance employee create --name Admin --email admin@example.com --department IT --role admin --password s3cret-pass`,
	RunE: runEmployeeCreate,
}

var employeeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees",
	Long: `List employees, optionally filtered by name, email or department.

Examples:
  face-attendance employee list
  face-attendance employee list --query sales --json`,
	RunE: runEmployeeList,
}

var employeeSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import employees from the HR directory",
	Long: `Import employees from the HR directory database (HR_DATABASE_URL).

Employees are matched by email. New entries are created with the employee
role; existing ones get their name and department refreshed. Roles,
passwords and registered faces are never touched.

Examples:
  face-attendance employee sync
  face-attendance employee sync --concurrency 10 --json`,
	RunE: runEmployeeSync,
}

func init() {
	rootCmd.AddCommand(employeeCmd)
	employeeCmd.AddCommand(employeeCreateCmd, employeeListCmd, employeeSyncCmd)

	employeeCreateCmd.Flags().String("name", "", "Full name (required)")
	employeeCreateCmd.Flags().String("email", "", "Email address (required)")
	employeeCreateCmd.Flags().String("department", "", "Department (required)")
	employeeCreateCmd.Flags().String("role", string(database.RoleEmployee), "Role: employee, manager or admin")
	employeeCreateCmd.Flags().String("password", "", "Password for signing in (optional)")
	employeeCreateCmd.Flags().Bool("json", false, "Output as JSON")

	employeeListCmd.Flags().String("query", "", "Filter by name, email or department")
	employeeListCmd.Flags().Bool("json", false, "Output as JSON")

	employeeSyncCmd.Flags().Int("concurrency", constants.DefaultSyncConcurrency, "Number of parallel workers")
	employeeSyncCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// EmployeeOutput is the JSON form of an employee.
type EmployeeOutput struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Department        string     `json:"department"`
	Role              string     `json:"role"`
	HasRegisteredFace bool       `json:"has_registered_face"`
	FaceRegisteredAt  *time.Time `json:"face_registered_at,omitempty"`
}

func toEmployeeOutput(e *database.Employee) EmployeeOutput {
	return EmployeeOutput{
		ID:                e.ID,
		Name:              e.Name,
		Email:             e.Email,
		Department:        e.Department,
		Role:              string(e.Role),
		HasRegisteredFace: e.FaceRegisteredAt != nil,
		FaceRegisteredAt:  e.FaceRegisteredAt,
	}
}

func runEmployeeCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, closeFn, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	e, err := svc.employees.Create(ctx, employees.CreateInput{
		Name:       mustGetString(cmd, "name"),
		Email:      mustGetString(cmd, "email"),
		Department: mustGetString(cmd, "department"),
		Role:       database.Role(mustGetString(cmd, "role")),
		Password:   mustGetString(cmd, "password"),
	})
	if err != nil {
		return fmt.Errorf("creating employee: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(toEmployeeOutput(e))
	}
	fmt.Printf("Created %s <%s> (%s, %s)\n", e.Name, e.Email, e.Department, e.Role)
	fmt.Printf("  ID: %s\n", e.ID)
	return nil
}

func runEmployeeList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, closeFn, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	list, err := svc.employees.Search(ctx, mustGetString(cmd, "query"))
	if err != nil {
		return fmt.Errorf("listing employees: %w", err)
	}

	if mustGetBool(cmd, "json") {
		out := make([]EmployeeOutput, 0, len(list))
		for i := range list {
			out = append(out, toEmployeeOutput(&list[i]))
		}
		return outputJSON(out)
	}

	if len(list) == 0 {
		fmt.Println("No employees found")
		return nil
	}
	for _, e := range list {
		face := "no face"
		if e.FaceRegisteredAt != nil {
			face = "face " + e.FaceRegisteredAt.Format(time.DateOnly)
		}
		fmt.Printf("%-36s  %-24s  %-30s  %-12s  %-8s  %s\n", e.ID, e.Name, e.Email, e.Department, e.Role, face)
	}
	fmt.Printf("\n%d employee(s)\n", len(list))
	return nil
}

// SyncEmployeesResult is the outcome of a directory import.
type SyncEmployeesResult struct {
	Success       bool     `json:"success"`
	Total         int      `json:"total"`
	Created       int      `json:"created"`
	Updated       int      `json:"updated"`
	Skipped       int      `json:"skipped"`
	Errors        []string `json:"errors,omitempty"`
	DurationMs    int64    `json:"duration_ms"`
	DurationHuman string   `json:"duration_human,omitempty"`
}

func runEmployeeSync(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	if cfg.Directory.URL == "" {
		return errors.New("HR_DATABASE_URL environment variable is required")
	}

	ctx := context.Background()
	startTime := time.Now()

	svc, closeFn, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	dir, err := mariadb.NewPool(ctx, cfg.Directory.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to HR directory: %w", err)
	}
	defer dir.Close()

	var bar *progressbar.ProgressBar
	opts := employees.SyncOptions{Concurrency: concurrency}
	if !jsonOutput {
		opts.OnLoaded = func(total int) {
			fmt.Printf("Found %d directory entries\n\n", total)
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(fmt.Sprintf("Syncing employees (%d workers)", concurrency)),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("employees"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
		}
		opts.OnProgress = func() {
			if bar != nil {
				bar.Add(1)
			}
		}
	}

	res, err := svc.employees.Sync(ctx, dir, opts)
	if err != nil {
		return fmt.Errorf("syncing directory: %w", err)
	}
	if bar != nil {
		fmt.Println()
	}

	duration := time.Since(startTime)
	result := SyncEmployeesResult{
		Success:       len(res.Errors) == 0,
		Total:         res.Total,
		Created:       res.Created,
		Updated:       res.Updated,
		Skipped:       res.Skipped,
		DurationMs:    duration.Milliseconds(),
		DurationHuman: formatDuration(duration),
	}
	for _, e := range res.Errors {
		result.Errors = append(result.Errors, e.Error())
	}

	if jsonOutput {
		result.DurationHuman = ""
		return outputJSON(result)
	}

	fmt.Println("\nSync complete!")
	fmt.Printf("  Directory entries: %d\n", result.Total)
	fmt.Printf("  Created:           %d\n", result.Created)
	fmt.Printf("  Updated:           %d\n", result.Updated)
	if result.Skipped > 0 {
		fmt.Printf("  Skipped:           %d\n", result.Skipped)
	}
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:            %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	fmt.Printf("  Duration:          %s\n", result.DurationHuman)
	return nil
}
