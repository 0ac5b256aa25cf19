//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := Open(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to open pool: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testEmbedding(seed float32) []float32 {
	emb := make([]float32, 512)
	for i := range emb {
		emb[i] = seed + float32(i)/512.0
	}
	return emb
}

func createTestEmployee(t *testing.T, repo *EmployeeRepository, name, email string) *database.Employee {
	t.Helper()
	e, err := database.NewEmployee(name, email, "Engineering", database.RoleEmployee)
	if err != nil {
		t.Fatalf("NewEmployee: %v", err)
	}
	if err := repo.CreateEmployee(context.Background(), e); err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	return e
}

func TestEmployeeRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewEmployeeRepository(pool)

	alice := createTestEmployee(t, repo, "Alice", "alice@example.com")

	t.Run("GetByEmailCaseInsensitive", func(t *testing.T) {
		got, err := repo.GetEmployeeByEmail(ctx, "ALICE@example.com")
		if err != nil {
			t.Fatalf("GetEmployeeByEmail: %v", err)
		}
		if got == nil || got.ID != alice.ID {
			t.Fatalf("GetEmployeeByEmail = %v, want %s", got, alice.ID)
		}
		if got.HasFace() {
			t.Error("new employee should not have a face")
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		dup, _ := database.NewEmployee("Other", "alice@example.com", "Sales", "")
		err := repo.CreateEmployee(ctx, dup)
		if !errors.Is(err, database.ErrDuplicateEmail) {
			t.Errorf("CreateEmployee error = %v, want ErrDuplicateEmail", err)
		}
	})

	t.Run("SetAndClearFace", func(t *testing.T) {
		at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		if err := repo.SetFaceEmbedding(ctx, alice.ID, testEmbedding(0.1), at); err != nil {
			t.Fatalf("SetFaceEmbedding: %v", err)
		}

		got, err := repo.GetEmployee(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetEmployee: %v", err)
		}
		if len(got.FaceEmbedding) != 512 {
			t.Errorf("embedding length = %d, want 512", len(got.FaceEmbedding))
		}
		if got.FaceRegisteredAt == nil || !got.FaceRegisteredAt.Equal(at) {
			t.Errorf("FaceRegisteredAt = %v, want %v", got.FaceRegisteredAt, at)
		}

		candidates, err := repo.ListFaceCandidates(ctx)
		if err != nil {
			t.Fatalf("ListFaceCandidates: %v", err)
		}
		if len(candidates) != 1 || candidates[0].EmployeeID != alice.ID {
			t.Errorf("ListFaceCandidates = %v, want only %s", candidates, alice.ID)
		}

		if err := repo.ClearFaceEmbedding(ctx, alice.ID); err != nil {
			t.Fatalf("ClearFaceEmbedding: %v", err)
		}
		got, _ = repo.GetEmployee(ctx, alice.ID)
		if got.HasFace() || got.FaceRegisteredAt != nil {
			t.Error("face should be cleared")
		}
	})

	t.Run("SetFaceMissingEmployee", func(t *testing.T) {
		err := repo.SetFaceEmbedding(ctx, "00000000-0000-0000-0000-000000000000", testEmbedding(0), time.Now())
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("SetFaceEmbedding error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpsertDirectoryEmployee", func(t *testing.T) {
		e, _ := database.NewEmployee("Bob", "bob@example.com", "Sales", "")
		created, err := repo.UpsertDirectoryEmployee(ctx, e)
		if err != nil || !created {
			t.Fatalf("first upsert = %v, %v, want true, nil", created, err)
		}

		again, _ := database.NewEmployee("Bob Builder", "bob@example.com", "Construction", "")
		created, err = repo.UpsertDirectoryEmployee(ctx, again)
		if err != nil || created {
			t.Fatalf("second upsert = %v, %v, want false, nil", created, err)
		}

		got, _ := repo.GetEmployeeByEmail(ctx, "bob@example.com")
		if got.ID != e.ID || got.Department != "Construction" {
			t.Errorf("upserted employee = %+v", got)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	employees := NewEmployeeRepository(pool)
	repo := NewAttendanceRepository(pool)

	e := createTestEmployee(t, employees, "Carol", "carol@example.com")
	checkIn := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	rec := database.NewCheckIn(e.ID, checkIn, time.UTC)

	if err := repo.CreateAttendance(ctx, rec); err != nil {
		t.Fatalf("CreateAttendance: %v", err)
	}

	t.Run("DuplicateDay", func(t *testing.T) {
		dup := database.NewCheckIn(e.ID, checkIn.Add(2*time.Hour), time.UTC)
		err := repo.CreateAttendance(ctx, dup)
		if !errors.Is(err, database.ErrDuplicateDay) {
			t.Errorf("CreateAttendance error = %v, want ErrDuplicateDay", err)
		}
	})

	t.Run("ActiveExists", func(t *testing.T) {
		next := database.NewCheckIn(e.ID, checkIn.Add(24*time.Hour), time.UTC)
		err := repo.CreateAttendance(ctx, next)
		if !errors.Is(err, database.ErrActiveExists) {
			t.Errorf("CreateAttendance error = %v, want ErrActiveExists", err)
		}
	})

	t.Run("FindByDayAndActive", func(t *testing.T) {
		got, err := repo.FindByDay(ctx, e.ID, rec.Date)
		if err != nil || got == nil || got.ID != rec.ID {
			t.Fatalf("FindByDay = %v, %v", got, err)
		}
		active, err := repo.FindActive(ctx, e.ID)
		if err != nil || active == nil || active.ID != rec.ID {
			t.Fatalf("FindActive = %v, %v", active, err)
		}
	})

	t.Run("Complete", func(t *testing.T) {
		out := checkIn.Add(8*time.Hour + 20*time.Minute)
		if err := repo.CompleteAttendance(ctx, rec.ID, out, database.TotalHours(checkIn, out)); err != nil {
			t.Fatalf("CompleteAttendance: %v", err)
		}
		got, _ := repo.FindByDay(ctx, e.ID, rec.Date)
		if got.Status != database.StatusCompleted || got.TotalHours != 8.33 {
			t.Errorf("completed record = %+v", got)
		}

		err := repo.CompleteAttendance(ctx, rec.ID, out, 1)
		if !errors.Is(err, database.ErrAlreadyCompleted) {
			t.Errorf("second CompleteAttendance error = %v, want ErrAlreadyCompleted", err)
		}
		err = repo.CompleteAttendance(ctx, "00000000-0000-0000-0000-000000000000", out, 1)
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("CompleteAttendance missing error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ManualRecordBypassesBackstops", func(t *testing.T) {
		manual := database.NewCheckIn(e.ID, checkIn.Add(time.Hour), time.UTC)
		manual.Source = database.SourceManual
		manual.Status = database.StatusLeave
		if err := repo.CreateAttendance(ctx, manual); err != nil {
			t.Fatalf("manual CreateAttendance: %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		records, total, err := repo.ListAttendance(ctx, database.AttendanceQuery{EmployeeID: e.ID, Limit: 1})
		if err != nil {
			t.Fatalf("ListAttendance: %v", err)
		}
		if total != 2 || len(records) != 1 {
			t.Errorf("ListAttendance = %d records, total %d, want 1, 2", len(records), total)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	e := createTestEmployee(t, NewEmployeeRepository(pool), "Dave", "dave@example.com")
	repo := NewSessionRepository(pool)

	now := time.Now().UTC()
	live := database.StoredSession{ID: "live", EmployeeID: e.ID, Role: database.RoleEmployee, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	expired := database.StoredSession{ID: "expired", EmployeeID: e.ID, Role: database.RoleEmployee, CreatedAt: now, ExpiresAt: now.Add(-time.Hour)}
	for _, s := range []database.StoredSession{live, expired} {
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("Save(%s): %v", s.ID, err)
		}
	}

	got, err := repo.Get(ctx, "live")
	if err != nil || got == nil || got.EmployeeID != e.ID {
		t.Fatalf("Get(live) = %v, %v", got, err)
	}
	if got, _ := repo.Get(ctx, "expired"); got != nil {
		t.Error("Get(expired) should return nil")
	}

	n, err := repo.DeleteExpired(ctx)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpired = %d, %v, want 1, nil", n, err)
	}
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("Failed to get applied migrations: %v", err)
	}

	expectedMigrations := []string{"001_initial.sql"}
	if len(applied) != len(expectedMigrations) {
		t.Fatalf("Expected %d migrations, got %d", len(expectedMigrations), len(applied))
	}
	for i, expected := range expectedMigrations {
		if applied[i] != expected {
			t.Errorf("Migration %d: expected '%s', got '%s'", i, expected, applied[i])
		}
	}

	again, err := pool.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second Migrate applied %v, want nothing", again)
	}
}
