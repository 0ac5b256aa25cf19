package cmd

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var faceCmd = &cobra.Command{
	Use:   "face",
	Short: "Manage registered faces",
}

var faceEnrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Register an employee's face from an image file",
	Long: `Register an employee's face from a photo on disk.

The image is sent to the ML service; registration fails when no face is
found or the detection confidence is below FACE_MIN_DETECTION_CONFIDENCE.
An existing registration is replaced.

Examples:
  face-attendance face enroll --employee jana@example.com --image jana.jpg`,
	RunE: runFaceEnroll,
}

var faceRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove an employee's registered face",
	RunE:  runFaceRemove,
}

var faceCollisionsCmd = &cobra.Command{
	Use:   "collisions",
	Short: "Find employees whose registered faces are too similar",
	Long: `Audit registered faces for pairs of employees that could verify as
each other. A pair is reported when the cosine similarity of their
embeddings is at least the threshold.

Examples:
  # Audit against the configured match threshold
  face-attendance face collisions

  # Stricter audit with JSON output
  face-attendance face collisions --threshold 0.35 --json`,
	RunE: runFaceCollisions,
}

func init() {
	rootCmd.AddCommand(faceCmd)
	faceCmd.AddCommand(faceEnrollCmd, faceRemoveCmd, faceCollisionsCmd)

	faceEnrollCmd.Flags().String("employee", "", "Employee ID or email (required)")
	faceEnrollCmd.Flags().String("image", "", "Path to a JPEG or PNG photo (required)")
	_ = faceEnrollCmd.MarkFlagRequired("employee")
	_ = faceEnrollCmd.MarkFlagRequired("image")

	faceRemoveCmd.Flags().String("employee", "", "Employee ID or email (required)")
	_ = faceRemoveCmd.MarkFlagRequired("employee")

	faceCollisionsCmd.Flags().Float64("threshold", 0, "Similarity threshold (defaults to FACE_MATCH_THRESHOLD)")
	faceCollisionsCmd.Flags().Int("neighbors", 0, "Nearest faces inspected per employee on large sets")
	faceCollisionsCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

func runFaceEnroll(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(mustGetString(cmd, "image"))
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
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

	res, err := svc.face.Register(ctx, e.ID, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return fmt.Errorf("registering face for %s: %w", e.Email, err)
	}
	fmt.Printf("Registered face for %s <%s>\n", e.Name, e.Email)
	fmt.Printf("  Detection confidence: %.3f\n", res.Confidence)
	fmt.Printf("  Registered at:        %s\n", res.RegisteredAt.Format(time.RFC3339))
	return nil
}

func runFaceRemove(cmd *cobra.Command, args []string) error {
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
	if err := svc.face.Unregister(ctx, e.ID); err != nil {
		return fmt.Errorf("removing face for %s: %w", e.Email, err)
	}
	fmt.Printf("Removed registered face of %s <%s>\n", e.Name, e.Email)
	return nil
}

// CollisionOutput is one suspicious pair.
type CollisionOutput struct {
	EmployeeA  string  `json:"employee_a"`
	EmployeeB  string  `json:"employee_b"`
	Similarity float64 `json:"similarity"`
}

// CollisionsResult is the outcome of a collision audit.
type CollisionsResult struct {
	Threshold  float64           `json:"threshold"`
	Candidates int               `json:"candidates"`
	Collisions []CollisionOutput `json:"collisions"`
}

func runFaceCollisions(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	svc, closeFn, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	threshold := svc.face.Policy().MatchThreshold
	if cmd.Flags().Changed("threshold") {
		threshold = mustGetFloat64(cmd, "threshold")
	}
	if threshold < -1 || threshold > 1 {
		return fmt.Errorf("threshold must be in [-1, 1], got %v", threshold)
	}

	total, err := svc.face.CandidateCount(ctx)
	if err != nil {
		return err
	}

	opts := facematch.CollisionOptions{Neighbors: mustGetInt(cmd, "neighbors")}
	var bar *progressbar.ProgressBar
	if !jsonOutput && total > 1 {
		fmt.Printf("Auditing %d registered faces at threshold %.2f\n\n", total, threshold)
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Comparing faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("faces"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
		opts.Progress = func() { bar.Add(1) }
	}

	collisions, err := svc.face.Collisions(ctx, threshold, opts)
	if err != nil {
		return fmt.Errorf("auditing faces: %w", err)
	}
	if bar != nil {
		fmt.Println()
	}

	result := CollisionsResult{Threshold: threshold, Candidates: total, Collisions: []CollisionOutput{}}
	for _, c := range collisions {
		result.Collisions = append(result.Collisions, CollisionOutput{
			EmployeeA:  c.EmployeeA,
			EmployeeB:  c.EmployeeB,
			Similarity: c.Similarity,
		})
	}

	if jsonOutput {
		return outputJSON(result)
	}

	if len(result.Collisions) == 0 {
		fmt.Println("\nNo colliding faces found")
		return nil
	}
	fmt.Printf("\n%d colliding pair(s):\n", len(result.Collisions))
	for _, c := range result.Collisions {
		a := describeEmployee(ctx, svc, c.EmployeeA)
		b := describeEmployee(ctx, svc, c.EmployeeB)
		fmt.Printf("  %.4f  %s  <->  %s\n", c.Similarity, a, b)
	}
	return nil
}

func describeEmployee(ctx context.Context, svc *services, id string) string {
	e, err := svc.store.GetEmployee(ctx, id)
	if err != nil || e == nil {
		return id
	}
	return fmt.Sprintf("%s <%s>", e.Name, e.Email)
}
