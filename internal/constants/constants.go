// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face storage constants
const (
	// PostgresEmbeddingDim is the dimension of the employees.face_embedding
	// vector column. The PostgreSQL backend requires FACE_EMBEDDING_DIM to match.
	PostgresEmbeddingDim = 512
)

// Collision audit constants
const (
	// DefaultCollisionNeighbors is how many nearest registered faces are
	// inspected per employee during a collision audit
	DefaultCollisionNeighbors = 5

	// HNSWMinCandidates is the size below which the audit compares every
	// pair directly instead of building an HNSW graph
	HNSWMinCandidates = 64
)

// Processing constants
const (
	// DefaultSyncConcurrency is the default number of parallel workers for directory sync
	DefaultSyncConcurrency = 5

	// JPEGQuality is the quality used when re-encoding captures for the ML service
	JPEGQuality = 90
)
