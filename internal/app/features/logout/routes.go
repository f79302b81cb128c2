package logout

import (
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts logout under the auth router.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		// Only allow signed-in users to hit /logout.
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeLogout)
	})

	return r
}
