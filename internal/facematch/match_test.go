package facematch

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func threeDimCandidates() []Candidate {
	return []Candidate{
		{EmployeeID: "A", Embedding: []float32{1, 0, 0}},
		{EmployeeID: "B", Embedding: []float32{0, 1, 0}},
	}
}

func TestVerify_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		query       []float32
		wantMatched bool
		wantID      string
		wantScore   float64
	}{
		{"close to A", []float32{0.9, 0.1, 0}, true, "A", 0.9 / math.Sqrt(0.82)},
		{"orthogonal to both", []float32{0, 0, 1}, false, "", 0},
		{"exactly B", []float32{0, 1, 0}, true, "B", 1},
		{"opposite of A", []float32{-1, 0, 0}, false, "", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Verify(tc.query, threeDimCandidates(), 0.45)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if got.Matched != tc.wantMatched {
				t.Fatalf("Matched = %v, want %v", got.Matched, tc.wantMatched)
			}
			if got.EmployeeID != tc.wantID {
				t.Errorf("EmployeeID = %q, want %q", got.EmployeeID, tc.wantID)
			}
			if math.Abs(got.BestScore-tc.wantScore) > 1e-6 {
				t.Errorf("BestScore = %v, want %v", got.BestScore, tc.wantScore)
			}
			if tc.wantMatched && got.Score != got.BestScore {
				t.Errorf("Score = %v, want %v", got.Score, got.BestScore)
			}
		})
	}
}

func TestVerify_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      []float32
		candidates []Candidate
		want       error
	}{
		{"no candidates", []float32{1, 0, 0}, nil, ErrNoCandidates},
		{"empty query", nil, threeDimCandidates(), ErrInvalidInput},
		{"dimension mismatch", []float32{1, 0}, threeDimCandidates(), ErrInvalidInput},
		{"ragged candidates", []float32{1, 0, 0}, []Candidate{
			{EmployeeID: "A", Embedding: []float32{1, 0, 0}},
			{EmployeeID: "B", Embedding: []float32{1, 0}},
		}, ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Verify(tc.query, tc.candidates, 0.45)
			if !errors.Is(err, tc.want) {
				t.Errorf("Verify() error = %v, want %v", err, tc.want)
			}
			if got.Matched {
				t.Error("Verify() matched on error")
			}
		})
	}
}

func randomEmbedding(r *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(r.NormFloat64())
	}
	return v
}

func randomCandidates(r *rand.Rand, n, dim int) []Candidate {
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{EmployeeID: string(rune('a'+i%26)) + string(rune('0'+i/26)), Embedding: randomEmbedding(r, dim)}
	}
	return out
}

func TestVerify_Deterministic(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	candidates := randomCandidates(r, 50, 512)
	query := randomEmbedding(r, 512)

	first, err := Verify(query, candidates, 0)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := Verify(query, candidates, 0)
		if again != first {
			t.Fatalf("run %d = %+v, want %+v", i, again, first)
		}
	}
}

func TestVerify_ScaleInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	candidates := randomCandidates(r, 20, 64)
	query := randomEmbedding(r, 64)

	base, _ := Verify(query, candidates, 0.1)
	for _, factor := range []float32{0.001, 0.5, 3, 1000} {
		scaled := make([]float32, len(query))
		for i, v := range query {
			scaled[i] = v * factor
		}
		got, _ := Verify(scaled, candidates, 0.1)
		if got.Matched != base.Matched || got.EmployeeID != base.EmployeeID {
			t.Errorf("factor %v: result = %+v, want %+v", factor, got, base)
		}
		if math.Abs(got.BestScore-base.BestScore) > 1e-5 {
			t.Errorf("factor %v: BestScore = %v, want %v", factor, got.BestScore, base.BestScore)
		}
	}
}

func TestVerify_ThresholdMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	candidates := randomCandidates(r, 10, 16)
	query := candidates[4].Embedding

	wasMatched := true
	for th := -1.0; th <= 1.0; th += 0.05 {
		got, _ := Verify(query, candidates, th)
		if got.Matched && !wasMatched {
			t.Fatalf("threshold %v matched after a lower threshold did not", th)
		}
		wasMatched = got.Matched
	}
}

func TestVerify_SelfMatch(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	candidates := randomCandidates(r, 30, 512)
	target := candidates[17]

	got, err := Verify(target.Embedding, candidates, 0.45)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !got.Matched || got.EmployeeID != target.EmployeeID {
		t.Fatalf("Verify() = %+v, want match on %s", got, target.EmployeeID)
	}
	if math.Abs(got.Score-1) > 1e-6 {
		t.Errorf("Score = %v, want ~1", got.Score)
	}
}

func TestVerify_ZeroQuery(t *testing.T) {
	got, err := Verify([]float32{0, 0, 0}, threeDimCandidates(), 0.45)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.Matched || got.BestScore != 0 {
		t.Errorf("Verify() = %+v, want no match with best score 0", got)
	}
}

func TestVerify_DoesNotMutateInputs(t *testing.T) {
	query := []float32{3, 4, 0}
	candidates := []Candidate{{EmployeeID: "A", Embedding: []float32{2, 0, 0}}}

	if _, err := Verify(query, candidates, 0.45); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if query[0] != 3 || query[1] != 4 || candidates[0].Embedding[0] != 2 {
		t.Errorf("inputs were modified: %v %v", query, candidates[0].Embedding)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr bool
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1, false},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1, false},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, false},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0, false},
		{"mismatch", []float32{1}, []float32{1, 0}, 0, true},
		{"empty", nil, nil, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CosineSimilarity(tc.a, tc.b)
			if (err != nil) != tc.wantErr {
				t.Fatalf("CosineSimilarity() error = %v, wantErr %v", err, tc.wantErr)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tc.want)
			}
		})
	}
}
