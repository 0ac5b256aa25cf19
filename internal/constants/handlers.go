// Package constants provides shared constants used across the codebase.
package constants

// Handler pagination constants
const (
	// DefaultHandlerPageSize is the page size for paginated handler endpoints
	DefaultHandlerPageSize = 30

	// MaxHandlerPageSize caps the limit query parameter
	MaxHandlerPageSize = 100
)

// Request size constants
const (
	// MaxCaptureBodySize is the maximum JSON body size for image uploads (10MB)
	MaxCaptureBodySize = 10 << 20

	// MaxJSONBodySize is the maximum size of other JSON request bodies (64KB)
	MaxJSONBodySize = 64 << 10
)
