// Package face registers employee face embeddings and verifies captures
// against every registered face.
package face

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/timesource"
)

var (
	// ErrLowConfidence means the detector was not sure enough that it saw a face.
	ErrLowConfidence = errors.New("face detection confidence too low")
	// ErrEmployeeNotFound means the employee does not exist.
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrNoRegistration means the employee has no registered face to remove.
	ErrNoRegistration = errors.New("no registered face found")
	// ErrNoRegisteredFaces means nobody has registered a face yet.
	ErrNoRegisteredFaces = errors.New("no registered faces found in system")
	// ErrInvalidEmbedding means the embedding has the wrong shape or bad values.
	ErrInvalidEmbedding = errors.New("invalid face embedding")
)

// Policy holds the tunable thresholds. MatchThreshold is a cosine similarity
// cutoff and MinConfidence is the detection quality gate; they are unrelated.
type Policy struct {
	MatchThreshold float64
	MinConfidence  float64
	EmbeddingDim   int
	MaxImageSize   int
}

// Service implements registration and verification.
type Service struct {
	employees database.EmployeeWriter
	extractor embedding.Extractor
	clock     timesource.Source
	policy    Policy
}

// NewService creates a face service.
func NewService(employees database.EmployeeWriter, extractor embedding.Extractor, clock timesource.Source, policy Policy) *Service {
	return &Service{
		employees: employees,
		extractor: extractor,
		clock:     clock,
		policy:    policy,
	}
}

// Policy returns the thresholds in effect.
func (s *Service) Policy() Policy {
	return s.policy
}

// RegistrationResult is returned by a successful registration.
type RegistrationResult struct {
	Confidence   float64
	RegisteredAt time.Time
}

// Status describes an employee's registration.
type Status struct {
	HasRegisteredFace bool
	RegisteredAt      *time.Time
}

// VerifyResult is the outcome of a verification. Employee is set on a match.
type VerifyResult struct {
	Matched    bool
	Employee   *database.Employee
	Score      float64
	BestScore  float64
	Confidence float64 // detection confidence of the capture
	Candidates int
}

// extract preprocesses a capture and sends it to the ML service.
func (s *Service) extract(ctx context.Context, imageB64 string) (*embedding.Result, error) {
	prepared, err := embedding.PrepareImage(imageB64, s.policy.MaxImageSize)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(ctx, prepared)
}

func (s *Service) checkConfidence(confidence float64) error {
	if confidence < s.policy.MinConfidence {
		return fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, confidence, s.policy.MinConfidence)
	}
	return nil
}

func (s *Service) checkEmbedding(emb []float32) error {
	if err := database.ValidateEmbedding(emb, s.policy.EmbeddingDim); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEmbedding, err)
	}
	return nil
}

// Register extracts a face from the capture and stores it for the employee.
func (s *Service) Register(ctx context.Context, employeeID, imageB64 string) (*RegistrationResult, error) {
	res, err := s.extract(ctx, imageB64)
	if err != nil {
		return nil, err
	}
	return s.RegisterEmbedding(ctx, employeeID, res.Embedding, res.Confidence)
}

// RegisterEmbedding replaces the employee's face embedding. The quality gate
// is checked first, then the embedding shape, then the employee.
func (s *Service) RegisterEmbedding(ctx context.Context, employeeID string, emb []float32, confidence float64) (*RegistrationResult, error) {
	if err := s.checkConfidence(confidence); err != nil {
		return nil, err
	}
	if err := s.checkEmbedding(emb); err != nil {
		return nil, err
	}

	e, err := s.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if e == nil {
		return nil, ErrEmployeeNotFound
	}

	now := s.clock.Now(ctx)
	if err := s.employees.SetFaceEmbedding(ctx, employeeID, emb, now); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("store face embedding: %w", err)
	}

	log.Printf("Face registered for employee %s (confidence %.2f)", employeeID, confidence)
	return &RegistrationResult{Confidence: confidence, RegisteredAt: now.UTC()}, nil
}

// Unregister removes the employee's face. Removing a face that is not there is an error.
func (s *Service) Unregister(ctx context.Context, employeeID string) error {
	e, err := s.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("load employee: %w", err)
	}
	if e == nil {
		return ErrEmployeeNotFound
	}
	if !e.HasFace() {
		return ErrNoRegistration
	}

	if err := s.employees.ClearFaceEmbedding(ctx, employeeID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrEmployeeNotFound
		}
		return fmt.Errorf("clear face embedding: %w", err)
	}

	log.Printf("Face registration removed for employee %s", employeeID)
	return nil
}

// Status reports whether the employee has a registered face.
func (s *Service) Status(ctx context.Context, employeeID string) (*Status, error) {
	e, err := s.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if e == nil {
		return nil, ErrEmployeeNotFound
	}
	return &Status{HasRegisteredFace: e.HasFace(), RegisteredAt: e.FaceRegisteredAt}, nil
}

// Verify extracts a face from the capture and matches it.
func (s *Service) Verify(ctx context.Context, imageB64 string) (*VerifyResult, error) {
	res, err := s.extract(ctx, imageB64)
	if err != nil {
		return nil, err
	}
	return s.VerifyEmbedding(ctx, res.Embedding, res.Confidence)
}

// VerifyEmbedding matches an embedding against a fresh snapshot of all
// registered faces. A non-match is a result, not an error.
func (s *Service) VerifyEmbedding(ctx context.Context, emb []float32, confidence float64) (*VerifyResult, error) {
	if err := s.checkConfidence(confidence); err != nil {
		return nil, err
	}
	if err := s.checkEmbedding(emb); err != nil {
		return nil, err
	}

	candidates, err := s.employees.ListFaceCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load face candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoRegisteredFaces
	}

	match, err := facematch.Verify(emb, candidates, s.policy.MatchThreshold)
	if err != nil {
		if errors.Is(err, facematch.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEmbedding, err)
		}
		return nil, err
	}

	log.Printf("Face verification: best score %.4f, threshold %.2f, %d candidates, matched=%v",
		match.BestScore, s.policy.MatchThreshold, len(candidates), match.Matched)

	result := &VerifyResult{
		Matched:    match.Matched,
		Score:      match.Score,
		BestScore:  match.BestScore,
		Confidence: confidence,
		Candidates: len(candidates),
	}
	if !match.Matched {
		return result, nil
	}

	e, err := s.employees.GetEmployee(ctx, match.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("load matched employee: %w", err)
	}
	if e == nil {
		return nil, ErrEmployeeNotFound
	}
	e.FaceEmbedding = nil
	result.Employee = e
	return result, nil
}

// Collisions lists pairs of employees whose registered faces are at least
// threshold-similar, so either one could verify as the other.
func (s *Service) Collisions(ctx context.Context, threshold float64, opts facematch.CollisionOptions) ([]facematch.Collision, error) {
	candidates, err := s.employees.ListFaceCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load face candidates: %w", err)
	}
	return facematch.FindCollisions(candidates, threshold, opts)
}

// CandidateCount returns how many employees have a registered face.
func (s *Service) CandidateCount(ctx context.Context) (int, error) {
	candidates, err := s.employees.ListFaceCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("load face candidates: %w", err)
	}
	return len(candidates), nil
}
