package logout

import (
	"net/http"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"go.uber.org/zap"
)

// Handler clears the caller's token cookie.
type Handler struct {
	Log    *zap.Logger
	Tokens *auth.TokenManager
}

// NewHandler returns a logout handler using tokens for the cookie settings.
func NewHandler(tokens *auth.TokenManager, logger *zap.Logger) *Handler {
	return &Handler{
		Log:    logger,
		Tokens: tokens,
	}
}

// ServeLogout handles GET /api/v1/auth/logout. Tokens are stateless, so
// logging out only expires the cookie; clients drop their bearer token.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	h.Tokens.ClearCookie(w)
	if u, ok := auth.CurrentUser(r); ok {
		h.Log.Info("user logged out", zap.String("user_id", u.ID))
	}
	uierrors.Message(w)
}
