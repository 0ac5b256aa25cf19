package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestAttendanceHandler_CheckInCheckOut(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addEmployee(t, "Alice", "alice@example.com", database.RoleEmployee, nil)
	h := NewAttendanceHandler(env.attendance)

	rec := httptest.NewRecorder()
	h.CheckIn(rec, env.asEmployee(t, httptest.NewRequest(http.MethodPost, "/", nil), alice))
	if rec.Code != http.StatusCreated {
		t.Fatalf("check-in status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	att := decodeResponse(t, rec)["attendance"].(map[string]any)
	if att["status"] != "active" || att["check_in"] != "2026-03-02T08:00:00Z" || att["date"] != "2026-03-02" {
		t.Errorf("check-in attendance = %v", att)
	}

	rec = httptest.NewRecorder()
	h.CheckIn(rec, env.asEmployee(t, httptest.NewRequest(http.MethodPost, "/", nil), alice))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("second check-in status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if resp := decodeResponse(t, rec); resp["error"] != "Already checked in today" {
		t.Errorf("second check-in error = %v", resp["error"])
	}

	env.clock.Advance(7*time.Hour + 30*time.Minute)
	rec = httptest.NewRecorder()
	h.CheckOut(rec, env.asEmployee(t, httptest.NewRequest(http.MethodPost, "/", nil), alice))
	if rec.Code != http.StatusOK {
		t.Fatalf("check-out status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp["duration"] != "7h 30m" {
		t.Errorf("duration = %v, want 7h 30m", resp["duration"])
	}
	att = resp["attendance"].(map[string]any)
	if att["status"] != "completed" || att["total_hours"] != 7.5 {
		t.Errorf("check-out attendance = %v", att)
	}

	rec = httptest.NewRecorder()
	h.CheckOut(rec, env.asEmployee(t, httptest.NewRequest(http.MethodPost, "/", nil), alice))
	if resp := decodeResponse(t, rec); rec.Code != http.StatusBadRequest || resp["error"] != "Already checked out" {
		t.Errorf("second check-out = %d %v, want 400 Already checked out", rec.Code, resp["error"])
	}
}

func TestAttendanceHandler_CheckOutWithoutCheckIn(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addEmployee(t, "Alice", "alice@example.com", database.RoleEmployee, nil)

	rec := httptest.NewRecorder()
	NewAttendanceHandler(env.attendance).CheckOut(rec, env.asEmployee(t, httptest.NewRequest(http.MethodPost, "/", nil), alice))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if resp := decodeResponse(t, rec); resp["error"] != "No active check-in found. Please check in first." {
		t.Errorf("error = %v", resp["error"])
	}
}

func TestAttendanceHandler_Status(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addEmployee(t, "Alice", "alice@example.com", database.RoleEmployee, nil)
	h := NewAttendanceHandler(env.attendance)

	rec := httptest.NewRecorder()
	h.Status(rec, env.asEmployee(t, httptest.NewRequest(http.MethodGet, "/", nil), alice))
	resp := decodeResponse(t, rec)
	if resp["isActive"] != false || resp["activeAttendance"] != nil || resp["todayAttendance"] != nil {
		t.Errorf("idle status = %v", resp)
	}

	h.CheckIn(httptest.NewRecorder(), env.asEmployee(t, httptest.NewRequest(http.MethodPost, "/", nil), alice))
	env.clock.Advance(90 * time.Minute)

	rec = httptest.NewRecorder()
	h.Status(rec, env.asEmployee(t, httptest.NewRequest(http.MethodGet, "/", nil), alice))
	resp = decodeResponse(t, rec)
	if resp["isActive"] != true {
		t.Fatalf("isActive = %v, want true", resp["isActive"])
	}
	active := resp["activeAttendance"].(map[string]any)
	if active["duration"] != 1.5 {
		t.Errorf("active duration = %v, want 1.5", active["duration"])
	}
}

func TestAttendanceHandler_History(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addEmployee(t, "Alice", "alice@example.com", database.RoleEmployee, nil)
	h := NewAttendanceHandler(env.attendance)

	for day := 0; day < 3; day++ {
		env.clock.Set(testNow.AddDate(0, 0, day))
		h.CheckIn(httptest.NewRecorder(), env.asEmployee(t, httptest.NewRequest(http.MethodPost, "/", nil), alice))
		env.clock.Advance(8 * time.Hour)
		h.CheckOut(httptest.NewRecorder(), env.asEmployee(t, httptest.NewRequest(http.MethodPost, "/", nil), alice))
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLen    int
	}{
		{"all", "", http.StatusOK, 3},
		{"paged", "?page=2&limit=2", http.StatusOK, 1},
		{"range", "?from=2026-03-03&to=2026-03-04", http.StatusOK, 2},
		{"bad date", "?from=03/03/2026", http.StatusBadRequest, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.History(rec, env.asEmployee(t, httptest.NewRequest(http.MethodGet, "/"+tc.query, nil), alice))
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			records := decodeResponse(t, rec)["records"].([]any)
			if len(records) != tc.wantLen {
				t.Errorf("records = %d, want %d", len(records), tc.wantLen)
			}
		})
	}
}
