package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Face       FaceConfig
	MLService  MLServiceConfig
	TimeSource TimeSourceConfig
	Attendance AttendanceConfig
	Database   DatabaseConfig
	Directory  DirectoryConfig
	Web        WebConfig
}

// FaceConfig holds the matching policy. MatchThreshold and
// MinDetectionConfidence are independent values.
type FaceConfig struct {
	MatchThreshold         float64 `yaml:"match_threshold"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
	EmbeddingDim           int     `yaml:"embedding_dim"`
	MaxImageSize           int     `yaml:"max_image_size"`
}

type MLServiceConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type TimeSourceConfig struct {
	URL     string        `yaml:"url"` // "local" disables the remote source
	Timeout time.Duration `yaml:"timeout"`
}

// UseRemote reports whether timestamps come from the remote time API.
func (c TimeSourceConfig) UseRemote() bool {
	return c.URL != "" && !strings.EqualFold(c.URL, "local")
}

type AttendanceConfig struct {
	Timezone string `yaml:"timezone"`
}

// Location returns the time zone used to derive attendance days.
func (c AttendanceConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// DirectoryConfig points at the read-only HR directory (MariaDB DSN,
// e.g. hr:hr@tcp(mariadb:3306)/hr?parseTime=true).
type DirectoryConfig struct {
	URL string
}

type WebConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	SessionSecret  string        `yaml:"-"`
	AllowedOrigins []string      `yaml:"-"`
}

type defaults struct {
	Face       FaceConfig       `yaml:"face"`
	MLService  MLServiceConfig  `yaml:"ml_service"`
	TimeSource TimeSourceConfig `yaml:"time_source"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Web        WebConfig        `yaml:"web"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration ("10s", "1m").
// Returns the default value if the env var is unset, empty, invalid, or not positive.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func Load() *Config {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Face: FaceConfig{
			MatchThreshold:         envFloat("FACE_MATCH_THRESHOLD", d.Face.MatchThreshold),
			MinDetectionConfidence: envFloat("FACE_MIN_DETECTION_CONFIDENCE", d.Face.MinDetectionConfidence),
			EmbeddingDim:           envInt("FACE_EMBEDDING_DIM", d.Face.EmbeddingDim),
			MaxImageSize:           envInt("FACE_MAX_IMAGE_SIZE", d.Face.MaxImageSize),
		},
		MLService: MLServiceConfig{
			URL:     strings.TrimRight(envString("ML_SERVICE_URL", d.MLService.URL), "/"),
			Timeout: envDuration("ML_SERVICE_TIMEOUT", d.MLService.Timeout),
		},
		TimeSource: TimeSourceConfig{
			URL:     envString("TIME_SOURCE_URL", d.TimeSource.URL),
			Timeout: envDuration("TIME_SOURCE_TIMEOUT", d.TimeSource.Timeout),
		},
		Attendance: AttendanceConfig{
			Timezone: envString("ATTENDANCE_TIMEZONE", d.Attendance.Timezone),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Directory: DirectoryConfig{
			URL: os.Getenv("HR_DATABASE_URL"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			SessionTTL:     envDuration("WEB_SESSION_TTL", d.Web.SessionTTL),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}

// Validate checks the policy values that would otherwise fail at request time.
func (c *Config) Validate() error {
	var errs []error
	if c.Face.MatchThreshold < -1 || c.Face.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("FACE_MATCH_THRESHOLD must be in [-1, 1], got %v", c.Face.MatchThreshold))
	}
	if c.Face.MinDetectionConfidence < 0 || c.Face.MinDetectionConfidence > 1 {
		errs = append(errs, fmt.Errorf("FACE_MIN_DETECTION_CONFIDENCE must be in [0, 1], got %v", c.Face.MinDetectionConfidence))
	}
	if c.Face.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("FACE_EMBEDDING_DIM must be positive, got %d", c.Face.EmbeddingDim))
	}
	if c.MLService.URL == "" {
		errs = append(errs, errors.New("ML_SERVICE_URL is required"))
	}
	if _, err := c.Attendance.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
