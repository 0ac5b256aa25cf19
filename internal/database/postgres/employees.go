package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

// EmployeeRepository provides PostgreSQL-backed employee storage.
// Face embeddings live in a pgvector column whose declared dimension
// rejects vectors of any other length.
type EmployeeRepository struct {
	pool *Pool
}

// NewEmployeeRepository creates a new PostgreSQL employee repository.
func NewEmployeeRepository(pool *Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

const employeeColumns = `id, name, email, department, role, password_hash,
	face_embedding::text, face_registered_at, created_at, updated_at`

func scanEmployee(scanner interface{ Scan(...any) error }) (*database.Employee, error) {
	var (
		e            database.Employee
		role         string
		embedding    sql.NullString
		registeredAt sql.NullTime
	)
	err := scanner.Scan(
		&e.ID, &e.Name, &e.Email, &e.Department, &role, &e.PasswordHash,
		&embedding, &registeredAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Role = database.Role(role)

	if embedding.Valid {
		var vec pgvector.Vector
		if err := vec.Scan(embedding.String); err != nil {
			return nil, fmt.Errorf("parse face embedding: %w", err)
		}
		e.FaceEmbedding = vec.Slice()
	}
	if registeredAt.Valid {
		at := registeredAt.Time.UTC()
		e.FaceRegisteredAt = &at
	}
	return &e, nil
}

// GetEmployee retrieves an employee by ID, returns nil if not found.
func (r *EmployeeRepository) GetEmployee(ctx context.Context, id string) (*database.Employee, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = $1", id)
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

// GetEmployeeByEmail retrieves an employee by email, returns nil if not found.
func (r *EmployeeRepository) GetEmployeeByEmail(ctx context.Context, email string) (*database.Employee, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE email = LOWER($1)", email)
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get employee by email: %w", err)
	}
	return e, nil
}

// ListEmployees returns all employees ordered by name, without embeddings.
func (r *EmployeeRepository) ListEmployees(ctx context.Context) ([]database.Employee, error) {
	query := `
		SELECT id, name, email, department, role, password_hash,
		       NULL::text, face_registered_at, created_at, updated_at
		FROM employees
		ORDER BY name, created_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var employees []database.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}

// ListFaceCandidates returns every employee with a registered face.
func (r *EmployeeRepository) ListFaceCandidates(ctx context.Context) ([]database.FaceCandidate, error) {
	query := `
		SELECT id, face_embedding
		FROM employees
		WHERE face_embedding IS NOT NULL
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query face candidates: %w", err)
	}
	defer rows.Close()

	var candidates []database.FaceCandidate
	for rows.Next() {
		var (
			id  string
			vec pgvector.Vector
		)
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, fmt.Errorf("scan face candidate: %w", err)
		}
		candidates = append(candidates, database.FaceCandidate{EmployeeID: id, Embedding: vec.Slice()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face candidates: %w", err)
	}
	return candidates, nil
}

// CreateEmployee stores a new employee.
func (r *EmployeeRepository) CreateEmployee(ctx context.Context, e *database.Employee) error {
	query := `
		INSERT INTO employees (id, name, email, department, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		e.ID, e.Name, e.Email, e.Department, string(e.Role), e.PasswordHash, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert employee: %w", translateConflict(err))
	}
	return nil
}

// UpsertDirectoryEmployee creates or updates an employee matched by email.
func (r *EmployeeRepository) UpsertDirectoryEmployee(ctx context.Context, e *database.Employee) (bool, error) {
	query := `
		INSERT INTO employees (id, name, email, department, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			department = EXCLUDED.department,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)
	`
	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		e.ID, e.Name, e.Email, e.Department, string(e.Role), time.Now().UTC(),
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert directory employee: %w", err)
	}
	return inserted, nil
}

// SetFaceEmbedding replaces the face embedding and registration time.
func (r *EmployeeRepository) SetFaceEmbedding(ctx context.Context, id string, embedding []float32, registeredAt time.Time) error {
	query := `
		UPDATE employees
		SET face_embedding = $2, face_registered_at = $3, updated_at = $3
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, pgvector.NewVector(embedding), registeredAt.UTC())
	if err != nil {
		return fmt.Errorf("set face embedding: %w", err)
	}
	return requireOneRow(result)
}

// ClearFaceEmbedding removes the face embedding and registration time.
func (r *EmployeeRepository) ClearFaceEmbedding(ctx context.Context, id string) error {
	query := `
		UPDATE employees
		SET face_embedding = NULL, face_registered_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("clear face embedding: %w", err)
	}
	return requireOneRow(result)
}

// requireOneRow returns database.ErrNotFound when an update touched nothing.
func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

var _ database.EmployeeWriter = (*EmployeeRepository)(nil)
