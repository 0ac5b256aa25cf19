// Package employees manages employee identity records: creation, password
// login, search and import from the HR directory.
package employees

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/database"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted for a new employee.
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrNotFound           = errors.New("employee not found")
)

// Service wraps the employee repository.
type Service struct {
	store database.EmployeeWriter
}

// NewService creates an employee service.
func NewService(store database.EmployeeWriter) *Service {
	return &Service{store: store}
}

// CreateInput holds the fields of a new employee. Password is optional;
// an employee without one can only authenticate by face.
type CreateInput struct {
	Name       string
	Email      string
	Department string
	Role       database.Role
	Password   string
}

// Create validates and stores a new employee.
func (s *Service) Create(ctx context.Context, in CreateInput) (*database.Employee, error) {
	e, err := database.NewEmployee(in.Name, in.Email, in.Department, in.Role)
	if err != nil {
		return nil, err
	}

	if in.Password != "" {
		if len(in.Password) < MinPasswordLength {
			return nil, ErrWeakPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		e.PasswordHash = string(hash)
	}

	if err := s.store.CreateEmployee(ctx, e); err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}

	log.Printf("Created employee %s (%s, %s)", e.ID, e.Email, e.Role)
	return e, nil
}

// Authenticate checks an email/password pair. Every failure, including an
// unknown email, returns ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*database.Employee, error) {
	email, err := database.NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	e, err := s.store.GetEmployeeByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if e == nil || e.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(e.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	e.FaceEmbedding = nil
	return e, nil
}

// Get returns the employee with id, without its embedding.
func (s *Service) Get(ctx context.Context, id string) (*database.Employee, error) {
	e, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if e == nil {
		return nil, ErrNotFound
	}
	e.FaceEmbedding = nil
	return e, nil
}

// Search returns employees whose name, email or department contains q.
// Name matching ignores case and diacritics, so "novak" finds "Novák".
func (s *Service) Search(ctx context.Context, q string) ([]database.Employee, error) {
	all, err := s.store.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	q = strings.TrimSpace(q)
	if q == "" {
		return all, nil
	}

	key := searchKey(q)
	lower := strings.ToLower(q)
	out := make([]database.Employee, 0, len(all))
	for _, e := range all {
		if matchesSearch(key, lower, e.Name, e.Email, e.Department) {
			out = append(out, e)
		}
	}
	return out, nil
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}
