package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/memory"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/employees"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/timesource"
)

// backend bundles the repositories of one storage implementation.
type backend struct {
	employees  database.EmployeeWriter
	attendance database.AttendanceWriter
	sessions   database.SessionRepository
	close      func()
}

// openBackend connects to PostgreSQL and applies pending migrations, or
// returns an in-memory store when inMemory is set.
func openBackend(ctx context.Context, cfg *config.Config, inMemory bool) (*backend, error) {
	if inMemory {
		store := memory.NewStore()
		return &backend{employees: store, attendance: store, sessions: store, close: func() {}}, nil
	}

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Face.EmbeddingDim != constants.PostgresEmbeddingDim {
		return nil, fmt.Errorf("FACE_EMBEDDING_DIM must be %d with the PostgreSQL backend, got %d",
			constants.PostgresEmbeddingDim, cfg.Face.EmbeddingDim)
	}

	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return &backend{
		employees:  postgres.NewEmployeeRepository(pool),
		attendance: postgres.NewAttendanceRepository(pool),
		sessions:   postgres.NewSessionRepository(pool),
		close:      func() { pool.Close() },
	}, nil
}

// newClock picks the remote time API or the local clock.
func newClock(cfg *config.Config) timesource.Source {
	if cfg.TimeSource.UseRemote() {
		return timesource.NewRemote(cfg.TimeSource.URL, cfg.TimeSource.Timeout)
	}
	return timesource.Local{}
}

// services holds the domain services wired to one backend.
type services struct {
	store      database.EmployeeWriter
	employees  *employees.Service
	face       *face.Service
	attendance *attendance.Service
}

func newServices(cfg *config.Config, b *backend) (*services, error) {
	loc, err := cfg.Attendance.Location()
	if err != nil {
		return nil, err
	}
	clock := newClock(cfg)
	extractor := embedding.NewClient(cfg.MLService.URL, cfg.MLService.Timeout)
	policy := face.Policy{
		MatchThreshold: cfg.Face.MatchThreshold,
		MinConfidence:  cfg.Face.MinDetectionConfidence,
		EmbeddingDim:   cfg.Face.EmbeddingDim,
		MaxImageSize:   cfg.Face.MaxImageSize,
	}
	return &services{
		store:      b.employees,
		employees:  employees.NewService(b.employees),
		face:       face.NewService(b.employees, extractor, clock, policy),
		attendance: attendance.NewService(b.attendance, b.employees, clock, loc),
	}, nil
}

// openServices loads the configuration, validates it and wires the services
// to PostgreSQL. Callers must run the returned close function.
func openServices(ctx context.Context) (*services, func(), error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	b, err := openBackend(ctx, cfg, false)
	if err != nil {
		return nil, nil, err
	}
	svc, err := newServices(cfg, b)
	if err != nil {
		b.close()
		return nil, nil, err
	}
	return svc, b.close, nil
}

// resolveEmployee accepts either an employee ID or an email address.
func resolveEmployee(ctx context.Context, store database.EmployeeReader, ref string) (*database.Employee, error) {
	var (
		e   *database.Employee
		err error
	)
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		e, err = store.GetEmployee(ctx, ref)
	} else {
		email, emailErr := database.NormalizeEmail(ref)
		if emailErr != nil {
			return nil, fmt.Errorf("%q is neither an employee ID nor an email address", ref)
		}
		e, err = store.GetEmployeeByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup employee: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("employee %q not found", ref)
	}
	return e, nil
}
