package facematch

import (
	"fmt"
	"math"
	"sort"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// hnswMaxNeighbors is the M parameter of the audit graph.
const hnswMaxNeighbors = 16

// CollisionOptions tunes FindCollisions.
type CollisionOptions struct {
	// Neighbors is how many nearest faces are inspected per employee on the
	// HNSW path. Zero means constants.DefaultCollisionNeighbors.
	Neighbors int
	// Progress, if set, is called once per candidate processed.
	Progress func()
}

// FindCollisions returns every pair of distinct employees whose registered
// embeddings have cosine similarity >= threshold, most similar first.
// Small sets are compared pairwise; larger ones go through an HNSW graph,
// so a pair is only reported if one is among the other's nearest neighbors.
func FindCollisions(candidates []Candidate, threshold float64, opts CollisionOptions) ([]Collision, error) {
	if len(candidates) < 2 {
		return nil, nil
	}
	dim := len(candidates[0].Embedding)
	for _, c := range candidates {
		if dim == 0 || len(c.Embedding) != dim {
			return nil, fmt.Errorf("%w: candidate %s has dimension %d, want %d",
				ErrInvalidInput, c.EmployeeID, len(c.Embedding), dim)
		}
	}

	normalized := make([][]float64, len(candidates))
	for i, c := range candidates {
		normalized[i] = normalize(c.Embedding)
	}

	var collisions []Collision
	seen := make(map[[2]int]bool)
	report := func(i, j int) {
		if i == j {
			return
		}
		if i > j {
			i, j = j, i
		}
		if seen[[2]int{i, j}] {
			return
		}
		seen[[2]int{i, j}] = true
		sim := dot(normalized[i], normalized[j])
		if sim >= threshold {
			collisions = append(collisions, Collision{
				EmployeeA:  candidates[i].EmployeeID,
				EmployeeB:  candidates[j].EmployeeID,
				Similarity: sim,
			})
		}
	}

	if len(candidates) < constants.HNSWMinCandidates {
		for i := range candidates {
			for j := i + 1; j < len(candidates); j++ {
				report(i, j)
			}
			if opts.Progress != nil {
				opts.Progress()
			}
		}
	} else {
		k := opts.Neighbors
		if k <= 0 {
			k = constants.DefaultCollisionNeighbors
		}
		g := buildGraph(normalized)
		for i := range candidates {
			// One extra neighbor since a node finds itself.
			for _, n := range g.Search(toFloat32(normalized[i]), k+1) {
				report(i, n.Key)
			}
			if opts.Progress != nil {
				opts.Progress()
			}
		}
	}

	sort.SliceStable(collisions, func(a, b int) bool {
		if collisions[a].Similarity != collisions[b].Similarity {
			return collisions[a].Similarity > collisions[b].Similarity
		}
		if collisions[a].EmployeeA != collisions[b].EmployeeA {
			return collisions[a].EmployeeA < collisions[b].EmployeeA
		}
		return collisions[a].EmployeeB < collisions[b].EmployeeB
	})
	return collisions, nil
}

// buildGraph indexes unit vectors by their position in the candidate slice.
// Zero vectors are left out since cosine distance is undefined for them.
func buildGraph(vectors [][]float64) *hnsw.Graph[int] {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	for i, v := range vectors {
		if isZero(v) {
			continue
		}
		g.Add(hnsw.MakeNode(i, toFloat32(v)))
	}
	return g
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func isZero(v []float64) bool {
	for _, x := range v {
		if math.Abs(x) > 0 {
			return false
		}
	}
	return true
}
