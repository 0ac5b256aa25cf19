// Package facematch decides which registered employee a face embedding belongs to.
// It is pure: no I/O, no shared state, inputs are never mutated.
package facematch

import (
	"errors"

	"github.com/kozaktomas/face-attendance/internal/database"
)

var (
	// ErrInvalidInput is returned for an empty query or a dimension mismatch.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoCandidates is returned when there is nothing to match against.
	ErrNoCandidates = errors.New("no candidates")
)

// Candidate is a registered employee embedding.
type Candidate = database.FaceCandidate

// MatchResult is the outcome of Verify. On a match EmployeeID and Score are
// set; otherwise BestScore carries the highest similarity seen.
type MatchResult struct {
	Matched    bool
	EmployeeID string
	Score      float64
	BestScore  float64
}

// Collision is a pair of employees whose registered faces are at least as
// similar as the match threshold, so either could verify as the other.
type Collision struct {
	EmployeeA  string
	EmployeeB  string
	Similarity float64
}
