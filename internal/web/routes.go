package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	sm := s.sessionManager

	// Create handlers
	authHandler := handlers.NewAuthHandler(s.services.Employees, sm)
	faceHandler := handlers.NewFaceHandler(s.services.Face, sm)
	attendanceHandler := handlers.NewAttendanceHandler(s.services.Attendance)
	adminHandler := handlers.NewAdminHandler(s.services.Employees, s.services.Attendance, s.services.Face)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", handlers.HealthCheck)

		// Auth routes
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Kiosk verification; a match opens a session
		r.Post("/face/verify", faceHandler.Verify)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sm))

			// Face registration
			r.Post("/face/register", faceHandler.Register)
			r.Delete("/face/register", faceHandler.Unregister)
			r.Get("/face/status", faceHandler.Status)

			// Attendance
			r.Post("/attendance/checkin", attendanceHandler.CheckIn)
			r.Post("/attendance/checkout", attendanceHandler.CheckOut)
			r.Get("/attendance/status", attendanceHandler.Status)
			r.Get("/attendance/history", attendanceHandler.History)

			// Administration: managers read, admins write
			r.Route("/admin", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(database.RoleAdmin, database.RoleManager))
					r.Get("/employees", adminHandler.ListEmployees)
					r.Get("/employees/{id}/attendance", adminHandler.EmployeeAttendance)
					r.Get("/faces/collisions", adminHandler.Collisions)
				})
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(database.RoleAdmin))
					r.Post("/employees", adminHandler.CreateEmployee)
					r.Post("/attendance", adminHandler.RecordAttendance)
				})
			})
		})
	})
}
