package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/memory"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/employees"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/timesource"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// fakeExtractor returns a canned extraction result
type fakeExtractor struct {
	result *embedding.Result
	err    error
}

func (f *fakeExtractor) Extract(context.Context, string) (*embedding.Result, error) {
	return f.result, f.err
}

// testEnv wires the services over an in-memory store
type testEnv struct {
	store      *memory.Store
	extractor  *fakeExtractor
	clock      *timesource.Fixed
	sessions   *middleware.SessionManager
	employees  *employees.Service
	face       *face.Service
	attendance *attendance.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	ext := &fakeExtractor{}
	clock := timesource.NewFixed(testNow)
	sm := middleware.NewSessionManager("test-secret", time.Hour, store)
	t.Cleanup(sm.Stop)

	return &testEnv{
		store:     store,
		extractor: ext,
		clock:     clock,
		sessions:  sm,
		employees: employees.NewService(store),
		face: face.NewService(store, ext, clock, face.Policy{
			MatchThreshold: 0.45,
			MinConfidence:  0.7,
			EmbeddingDim:   4,
			MaxImageSize:   64,
		}),
		attendance: attendance.NewService(store, store, clock, time.UTC),
	}
}

// addEmployee creates an employee with an optional face and password
func (e *testEnv) addEmployee(t *testing.T, name, email string, role database.Role, emb []float32) *database.Employee {
	t.Helper()
	emp, err := e.employees.Create(context.Background(), employees.CreateInput{
		Name:       name,
		Email:      email,
		Department: "Engineering",
		Role:       role,
		Password:   "password123",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if emb != nil {
		if err := e.store.SetFaceEmbedding(context.Background(), emp.ID, emb, testNow.Add(-time.Hour)); err != nil {
			t.Fatalf("SetFaceEmbedding: %v", err)
		}
	}
	return emp
}

// asEmployee attaches a fresh session for emp to the request context
func (e *testEnv) asEmployee(t *testing.T, r *http.Request, emp *database.Employee) *http.Request {
	t.Helper()
	session, err := e.sessions.CreateSession(context.Background(), emp.ID, emp.Role)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return r.WithContext(middleware.SetSessionInContext(r.Context(), session))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func testImage(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 128, 96))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
