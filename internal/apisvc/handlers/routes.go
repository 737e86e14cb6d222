package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"

	"github.com/hksamms/samms-services/internal/apisvc/models"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Get("/health", h.HealthHandler)

	if h.uploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.uploadDir))))
	}

	r.Route("/api", func(r chi.Router) {

		// public routes here
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/verify-code", h.VerifyCode)
			r.Post("/reset-password", h.ResetPassword)
		})

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(h.Authenticator)

			admin := h.RequireRole(models.RoleAdmin)
			anyRole := h.RequireRole(models.RoleAdmin, models.RoleChecker, models.RoleFacilitator)

			r.Route("/checkerAttendance", func(r chi.Router) {
				r.With(anyRole).Post("/", h.CheckIn)
				r.With(admin).Get("/", h.ListCheckIns)
			})

			r.Route("/scholars", func(r chi.Router) {
				r.With(admin).Get("/", h.ListScholars)
				r.With(admin).Post("/", h.CreateScholar)
				r.With(admin).Get("/count-by-month", h.CountScholarsByMonth)
				r.With(admin).Put("/{id}", h.UpdateScholar)
				r.With(admin).Patch("/{id}/status", h.ToggleScholarStatus)
				r.With(anyRole).Get("/{id}", h.LookupScholar)
			})

			r.Route("/selfAttendance", func(r chi.Router) {
				r.Use(anyRole)
				r.Post("/add", h.AddSelfAttendance)
				r.Get("/my", h.MySelfAttendance)
			})
		})
	})
}
