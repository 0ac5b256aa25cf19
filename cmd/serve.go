package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Attendance API server.
The server exposes the kiosk endpoints (face verification, check-in and
check-out), face registration for signed-in employees and the admin API.

Examples:
  # Serve against PostgreSQL (DATABASE_URL)
  face-attendance serve

  # Throwaway in-memory storage for local development
  face-attendance serve --memory --port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (overrides WEB_SESSION_SECRET)")
	serveCmd.Flags().StringSlice("allowed-origins", nil, "Extra CORS origins (overrides WEB_ALLOWED_ORIGINS)")
	serveCmd.Flags().Bool("memory", false, "Keep all data in memory instead of PostgreSQL")
}

// applyServeFlags lets flags take precedence over the environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Web.SessionSecret = secret
	}
	if origins := mustGetStringSlice(cmd, "allowed-origins"); len(origins) > 0 {
		cfg.Web.AllowedOrigins = origins
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inMemory := mustGetBool(cmd, "memory")
	if inMemory {
		fmt.Printf("Using in-memory storage (data is lost on exit)\n")
	} else {
		fmt.Printf("Connecting to PostgreSQL database...\n")
	}
	b, err := openBackend(ctx, cfg, inMemory)
	if err != nil {
		return err
	}
	defer b.close()

	svc, err := newServices(cfg, b)
	if err != nil {
		return err
	}
	if cfg.TimeSource.UseRemote() {
		fmt.Printf("Timestamps from %s\n", cfg.TimeSource.URL)
	}
	fmt.Printf("Match threshold %.2f, minimum detection confidence %.2f\n",
		cfg.Face.MatchThreshold, cfg.Face.MinDetectionConfidence)

	server := web.NewServer(cfg, web.Services{
		Employees:  svc.employees,
		Face:       svc.face,
		Attendance: svc.attendance,
	}, b.sessions)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
