package facematch

import (
	"fmt"
	"math"
)

// Verify finds the candidate most similar to query and accepts it if the
// cosine similarity is at least threshold. Ties keep the first candidate seen.
func Verify(query []float32, candidates []Candidate, threshold float64) (MatchResult, error) {
	if len(candidates) == 0 {
		return MatchResult{}, ErrNoCandidates
	}
	if len(query) == 0 {
		return MatchResult{}, fmt.Errorf("%w: empty query embedding", ErrInvalidInput)
	}

	q := normalize(query)
	best, bestIdx := -1.0, -1
	for i, c := range candidates {
		if len(c.Embedding) != len(query) {
			return MatchResult{}, fmt.Errorf("%w: candidate %s has dimension %d, query has %d",
				ErrInvalidInput, c.EmployeeID, len(c.Embedding), len(query))
		}
		score := dot(q, normalize(c.Embedding))
		if bestIdx < 0 || score > best {
			best, bestIdx = score, i
		}
	}

	if best >= threshold {
		return MatchResult{Matched: true, EmployeeID: candidates[bestIdx].EmployeeID, Score: best, BestScore: best}, nil
	}
	return MatchResult{BestScore: best}, nil
}

// CosineSimilarity returns the cosine similarity of a and b in [-1, 1].
// A zero vector is treated as having norm 1, so its similarity is 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimensions %d and %d", ErrInvalidInput, len(a), len(b))
	}
	return dot(normalize(a), normalize(b)), nil
}

// normalize returns v scaled to unit L2 norm in float64. A zero norm divides by 1.
func normalize(v []float32) []float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x) / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return clamp(s)
}

// clamp keeps rounding error from pushing a score outside [-1, 1].
func clamp(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
