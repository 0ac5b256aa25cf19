// Package memory provides in-memory implementations of the database repositories.
// A Store is created explicitly and injected; there is no package-level state.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Store holds employees, attendance records and sessions in memory.
// It implements database.EmployeeWriter, database.AttendanceWriter and
// database.SessionRepository, and enforces the same uniqueness backstops
// as the PostgreSQL schema.
type Store struct {
	mu         sync.RWMutex
	employees  map[string]*database.Employee
	order      []string // employee IDs in creation order
	attendance map[string]*database.AttendanceRecord
	sessions   map[string]database.StoredSession

	// Error injection
	ListFaceCandidatesError error
	CreateAttendanceError   error
	SetFaceEmbeddingError   error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		employees:  make(map[string]*database.Employee),
		attendance: make(map[string]*database.AttendanceRecord),
		sessions:   make(map[string]database.StoredSession),
	}
}

func cloneEmployee(e *database.Employee) *database.Employee {
	c := *e
	if e.FaceEmbedding != nil {
		c.FaceEmbedding = append([]float32(nil), e.FaceEmbedding...)
	}
	if e.FaceRegisteredAt != nil {
		at := *e.FaceRegisteredAt
		c.FaceRegisteredAt = &at
	}
	return &c
}

func cloneRecord(r *database.AttendanceRecord) *database.AttendanceRecord {
	c := *r
	if r.CheckOut != nil {
		out := *r.CheckOut
		c.CheckOut = &out
	}
	return &c
}

// GetEmployee retrieves an employee by ID
func (s *Store) GetEmployee(ctx context.Context, id string) (*database.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, nil
	}
	return cloneEmployee(e), nil
}

// GetEmployeeByEmail retrieves an employee by email
func (s *Store) GetEmployeeByEmail(ctx context.Context, email string) (*database.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byEmailLocked(email), nil
}

func (s *Store) byEmailLocked(email string) *database.Employee {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range s.employees {
		if e.Email == email {
			return cloneEmployee(e)
		}
	}
	return nil
}

// ListEmployees returns all employees ordered by name, without embeddings
func (s *Store) ListEmployees(ctx context.Context) ([]database.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]database.Employee, 0, len(s.employees))
	for _, id := range s.order {
		e := cloneEmployee(s.employees[id])
		e.FaceEmbedding = nil
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListFaceCandidates returns employees with registered faces in creation order
func (s *Store) ListFaceCandidates(ctx context.Context) ([]database.FaceCandidate, error) {
	if s.ListFaceCandidatesError != nil {
		return nil, s.ListFaceCandidatesError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.FaceCandidate
	for _, id := range s.order {
		e := s.employees[id]
		if len(e.FaceEmbedding) == 0 {
			continue
		}
		out = append(out, database.FaceCandidate{
			EmployeeID: e.ID,
			Embedding:  append([]float32(nil), e.FaceEmbedding...),
		})
	}
	return out, nil
}

// CreateEmployee stores a new employee
func (s *Store) CreateEmployee(ctx context.Context, e *database.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byEmailLocked(e.Email) != nil {
		return database.ErrDuplicateEmail
	}
	s.employees[e.ID] = cloneEmployee(e)
	s.order = append(s.order, e.ID)
	return nil
}

// UpsertDirectoryEmployee creates or updates an employee matched by email
func (s *Store) UpsertDirectoryEmployee(ctx context.Context, e *database.Employee) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.employees {
		if existing.Email == e.Email {
			existing.Name = e.Name
			existing.Department = e.Department
			existing.UpdatedAt = time.Now().UTC()
			return false, nil
		}
	}
	s.employees[e.ID] = cloneEmployee(e)
	s.order = append(s.order, e.ID)
	return true, nil
}

// SetFaceEmbedding replaces an employee's face embedding
func (s *Store) SetFaceEmbedding(ctx context.Context, id string, embedding []float32, registeredAt time.Time) error {
	if s.SetFaceEmbeddingError != nil {
		return s.SetFaceEmbeddingError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return database.ErrNotFound
	}
	at := registeredAt.UTC()
	e.FaceEmbedding = append([]float32(nil), embedding...)
	e.FaceRegisteredAt = &at
	e.UpdatedAt = at
	return nil
}

// ClearFaceEmbedding removes an employee's face embedding
func (s *Store) ClearFaceEmbedding(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return database.ErrNotFound
	}
	e.FaceEmbedding = nil
	e.FaceRegisteredAt = nil
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// FindByDay returns any record of the employee on day
func (s *Store) FindByDay(ctx context.Context, employeeID string, day time.Time) (*database.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.attendance {
		if r.EmployeeID == employeeID && r.Date.Equal(day) {
			return cloneRecord(r), nil
		}
	}
	return nil, nil
}

// FindActive returns the employee's active record
func (s *Store) FindActive(ctx context.Context, employeeID string) (*database.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Latest check-in wins, as in the postgres repository.
	var latest *database.AttendanceRecord
	for _, r := range s.attendance {
		if r.EmployeeID != employeeID || r.Status != database.StatusActive {
			continue
		}
		if latest == nil || r.CheckIn.After(latest.CheckIn) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneRecord(latest), nil
}

// ListAttendance returns matching records, newest check-in first
func (s *Store) ListAttendance(ctx context.Context, q database.AttendanceQuery) ([]database.AttendanceRecord, int, error) {
	s.mu.RLock()
	var matched []database.AttendanceRecord
	for _, r := range s.attendance {
		if q.EmployeeID != "" && r.EmployeeID != q.EmployeeID {
			continue
		}
		if !q.From.IsZero() && r.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && r.Date.After(q.To) {
			continue
		}
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		matched = append(matched, *cloneRecord(r))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CheckIn.After(matched[j].CheckIn) })
	total := len(matched)

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return nil, total, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

// CreateAttendance inserts a record, enforcing the automatic-flow backstops
func (s *Store) CreateAttendance(ctx context.Context, rec *database.AttendanceRecord) error {
	if s.CreateAttendanceError != nil {
		return s.CreateAttendanceError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Source == database.SourceAuto {
		for _, r := range s.attendance {
			if r.EmployeeID != rec.EmployeeID || r.Source != database.SourceAuto {
				continue
			}
			if r.Date.Equal(rec.Date) {
				return database.ErrDuplicateDay
			}
			if r.Status == database.StatusActive && rec.Status == database.StatusActive {
				return database.ErrActiveExists
			}
		}
	}
	s.attendance[rec.ID] = cloneRecord(rec)
	return nil
}

// CompleteAttendance closes an open record
func (s *Store) CompleteAttendance(ctx context.Context, id string, checkOut time.Time, totalHours float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.attendance[id]
	if !ok {
		return database.ErrNotFound
	}
	if r.CheckOut != nil {
		return database.ErrAlreadyCompleted
	}
	out := checkOut.UTC()
	r.CheckOut = &out
	r.TotalHours = totalHours
	r.Status = database.StatusCompleted
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Save stores a session
func (s *Store) Save(ctx context.Context, sess database.StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

// Get returns an unexpired session or nil
func (s *Store) Get(ctx context.Context, id string) (*database.StoredSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || !time.Now().Before(sess.ExpiresAt) {
		return nil, nil
	}
	return &sess, nil
}

// Delete removes a session
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// DeleteExpired removes expired sessions and returns how many were removed
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now()
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

var (
	_ database.EmployeeWriter    = (*Store)(nil)
	_ database.AttendanceWriter  = (*Store)(nil)
	_ database.SessionRepository = (*Store)(nil)
)
