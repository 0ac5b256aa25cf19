package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestAdminHandler_ListEmployees(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addEmployee(t, "Admin", "admin@example.com", database.RoleAdmin, nil)
	env.addEmployee(t, "Jiří Novák", "jiri@example.com", database.RoleEmployee, []float32{1, 0, 0, 0})
	h := NewAdminHandler(env.employees, env.attendance, env.face)

	tests := []struct {
		query   string
		wantLen int
	}{
		{"", 2},
		{"?q=novak", 1},
		{"?q=nobody", 0},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		h.ListEmployees(rec, env.asEmployee(t, httptest.NewRequest(http.MethodGet, "/"+tc.query, nil), admin))
		list := decodeResponse(t, rec)["employees"].([]any)
		if len(list) != tc.wantLen {
			t.Errorf("ListEmployees(%q) = %d, want %d", tc.query, len(list), tc.wantLen)
		}
	}

	rec := httptest.NewRecorder()
	h.ListEmployees(rec, env.asEmployee(t, httptest.NewRequest(http.MethodGet, "/?q=novak", nil), admin))
	emp := decodeResponse(t, rec)["employees"].([]any)[0].(map[string]any)
	if emp["hasRegisteredFace"] != true {
		t.Errorf("hasRegisteredFace = %v, want true", emp["hasRegisteredFace"])
	}
	if _, leaked := emp["face_embedding"]; leaked {
		t.Error("employee response exposes the embedding")
	}
}

func TestAdminHandler_CreateEmployee(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{"valid", map[string]string{"name": "Eva", "email": "eva@example.com", "department": "Ops"}, http.StatusCreated},
		{"duplicate email", map[string]string{"name": "Other", "email": "admin@example.com", "department": "Ops"}, http.StatusBadRequest},
		{"missing department", map[string]string{"name": "Eva", "email": "eva@example.com"}, http.StatusBadRequest},
		{"bad role", map[string]string{"name": "Eva", "email": "eva@example.com", "department": "Ops", "role": "root"}, http.StatusBadRequest},
		{"weak password", map[string]string{"name": "Eva", "email": "eva@example.com", "department": "Ops", "password": "123"}, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			admin := env.addEmployee(t, "Admin", "admin@example.com", database.RoleAdmin, nil)
			rec := httptest.NewRecorder()
			NewAdminHandler(env.employees, env.attendance, env.face).CreateEmployee(rec,
				env.asEmployee(t, jsonRequest(t, http.MethodPost, "/", tc.body), admin))
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestAdminHandler_RecordAttendance(t *testing.T) {
	tests := []struct {
		name       string
		body       func(id string) map[string]any
		wantStatus int
		wantHours  float64
	}{
		{"completed", func(id string) map[string]any {
			return map[string]any{"employeeId": id, "checkIn": "2026-03-01T08:00:00Z", "checkOut": "2026-03-01T16:15:00Z", "notes": "badge reader down"}
		}, http.StatusCreated, 8.25},
		{"bad timestamp", func(id string) map[string]any {
			return map[string]any{"employeeId": id, "checkIn": "yesterday"}
		}, http.StatusBadRequest, 0},
		{"check-out first", func(id string) map[string]any {
			return map[string]any{"employeeId": id, "checkIn": "2026-03-01T16:00:00Z", "checkOut": "2026-03-01T08:00:00Z"}
		}, http.StatusBadRequest, 0},
		{"unknown employee", func(string) map[string]any {
			return map[string]any{"employeeId": "missing", "checkIn": "2026-03-01T08:00:00Z"}
		}, http.StatusNotFound, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			admin := env.addEmployee(t, "Admin", "admin@example.com", database.RoleAdmin, nil)
			alice := env.addEmployee(t, "Alice", "alice@example.com", database.RoleEmployee, nil)

			rec := httptest.NewRecorder()
			NewAdminHandler(env.employees, env.attendance, env.face).RecordAttendance(rec,
				env.asEmployee(t, jsonRequest(t, http.MethodPost, "/", tc.body(alice.ID)), admin))
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantStatus != http.StatusCreated {
				return
			}
			att := decodeResponse(t, rec)["attendance"].(map[string]any)
			if att["source"] != "manual" || att["status"] != "completed" || att["total_hours"] != tc.wantHours {
				t.Errorf("attendance = %v", att)
			}
		})
	}
}

func TestAdminHandler_EmployeeAttendance(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addEmployee(t, "Admin", "admin@example.com", database.RoleAdmin, nil)
	alice := env.addEmployee(t, "Alice", "alice@example.com", database.RoleEmployee, nil)
	if _, err := env.attendance.CheckIn(t.Context(), alice.ID); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	h := NewAdminHandler(env.employees, env.attendance, env.face)

	rec := httptest.NewRecorder()
	req := requestWithChiParams(env.asEmployee(t, httptest.NewRequest(http.MethodGet, "/", nil), admin), map[string]string{"id": alice.ID})
	h.EmployeeAttendance(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if records := decodeResponse(t, rec)["records"].([]any); len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}

	rec = httptest.NewRecorder()
	req = requestWithChiParams(env.asEmployee(t, httptest.NewRequest(http.MethodGet, "/", nil), admin), map[string]string{"id": "missing"})
	h.EmployeeAttendance(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown employee status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAdminHandler_Collisions(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addEmployee(t, "Admin", "admin@example.com", database.RoleAdmin, nil)
	env.addEmployee(t, "Twin A", "a@example.com", database.RoleEmployee, []float32{1, 0, 0, 0})
	env.addEmployee(t, "Twin B", "b@example.com", database.RoleEmployee, []float32{0.95, 0.05, 0, 0})
	env.addEmployee(t, "Other", "c@example.com", database.RoleEmployee, []float32{0, 0, 1, 0})
	h := NewAdminHandler(env.employees, env.attendance, env.face)

	tests := []struct {
		query      string
		wantStatus int
		wantPairs  int
	}{
		{"", http.StatusOK, 1},
		{"?threshold=0.9999", http.StatusOK, 0},
		{"?threshold=-1", http.StatusOK, 3},
		{"?threshold=2", http.StatusBadRequest, 0},
		{"?threshold=abc", http.StatusBadRequest, 0},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		h.Collisions(rec, env.asEmployee(t, httptest.NewRequest(http.MethodGet, "/"+tc.query, nil), admin))
		if rec.Code != tc.wantStatus {
			t.Errorf("Collisions(%q) status = %d, want %d", tc.query, rec.Code, tc.wantStatus)
			continue
		}
		if tc.wantStatus != http.StatusOK {
			continue
		}
		pairs := decodeResponse(t, rec)["collisions"].([]any)
		if len(pairs) != tc.wantPairs {
			t.Errorf("Collisions(%q) = %d pairs, want %d", tc.query, len(pairs), tc.wantPairs)
		}
	}
}
