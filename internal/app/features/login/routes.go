package login

import (
	"github.com/dalemusser/collegeportal/internal/app/features/logout"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the account endpoints at /api/v1/auth.
func Routes(h *Handler, lh *logout.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/me", h.ServeMe)
		pr.Put("/me", h.HandleUpdateMe)
	})
	r.Mount("/logout", logout.Routes(lh))
	return r
}
