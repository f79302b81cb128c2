package login

import (
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	userstore "github.com/dalemusser/collegeportal/internal/app/store/users"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/formutil"
	"github.com/dalemusser/collegeportal/internal/app/system/inputval"
	"github.com/dalemusser/collegeportal/internal/app/system/metrics"
	"github.com/dalemusser/collegeportal/internal/app/system/ratelimit"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the auth endpoints.
type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	ErrLog  *uierrors.ErrorLogger
	Tokens  *auth.TokenManager
	Limiter *ratelimit.AuthLimiter

	users *userstore.Store
}

// NewHandler wires the handler to the shared token manager and limiter.
func NewHandler(db *mongo.Database, tokens *auth.TokenManager, limiter *ratelimit.AuthLimiter, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Log:     logger,
		ErrLog:  errLog,
		Tokens:  tokens,
		Limiter: limiter,
		users:   userstore.New(db),
	}
}

type registerInput struct {
	Name       string `json:"name" validate:"notblank,max=50"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Role       string `json:"role" validate:"omitempty,oneof=student teacher"`
	Department string `json:"department" validate:"notblank,max=100"`
	StudentID  string `json:"studentId" validate:"max=50"`
	Phone      string `json:"phone" validate:"omitempty,phone"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type tokenResponse struct {
	Success bool      `json:"success"`
	Token   string    `json:"token"`
	User    tokenUser `json:"user"`
}

// sendToken issues a token for u, sets the cookie and writes the login
// response.
func (h *Handler) sendToken(w http.ResponseWriter, r *http.Request, u *models.User, status int) {
	tok, err := h.Tokens.Issue(u.ID.Hex(), u.Role)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "issue token failed", err, "")
		return
	}
	h.Tokens.SetCookie(w, tok)
	uierrors.Raw(w, status, tokenResponse{
		Success: true,
		Token:   tok,
		User:    tokenUser{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Role: u.Role},
	})
}

func (h *Handler) limited(w http.ResponseWriter, r *http.Request, kind, email string) bool {
	if h.Limiter == nil {
		return false
	}
	msg, ok := h.Limiter.Check(r, email)
	if ok {
		return false
	}
	metrics.AuthAttempts.WithLabelValues(kind, "limited").Inc()
	h.Log.Warn("auth attempt rate limited",
		zap.String("kind", kind),
		zap.String("ip", ratelimit.ClientIP(r)))
	uierrors.TooManyRequests(w, msg)
	return true
}

// HandleRegister creates an account and signs it in.
// POST /api/v1/auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	in.Department = strings.TrimSpace(in.Department)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := inputval.Struct(in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	if h.limited(w, r, "register", "") {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "register")
	defer cancel()

	u, err := h.users.Create(ctx, models.User{
		Name:       in.Name,
		Email:      in.Email,
		Role:       in.Role,
		Department: in.Department,
		StudentID:  in.StudentID,
		Phone:      in.Phone,
	}, in.Password)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		metrics.AuthAttempts.WithLabelValues("register", "duplicate").Inc()
		uierrors.RenderBadRequest(w, "Email already in use")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create user failed", err, "")
		return
	}

	metrics.AuthAttempts.WithLabelValues("register", "ok").Inc()
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role))
	h.sendToken(w, r, &u, http.StatusOK)
}

// HandleLogin checks credentials and returns a token.
// POST /api/v1/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		uierrors.RenderBadRequest(w, "Please provide an email and password")
		return
	}
	if h.limited(w, r, "login", in.Email) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	u, err := h.users.Authenticate(ctx, in.Email, in.Password)
	if errors.Is(err, userstore.ErrBadCredentials) {
		metrics.AuthAttempts.WithLabelValues("login", "failed").Inc()
		uierrors.RenderUnauthorized(w, "Invalid credentials")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "authenticate failed", err, "")
		return
	}

	if h.Limiter != nil {
		h.Limiter.Succeeded(in.Email)
	}
	metrics.AuthAttempts.WithLabelValues("login", "ok").Inc()
	h.Log.Info("user logged in", zap.String("user_id", u.ID.Hex()))
	h.sendToken(w, r, u, http.StatusOK)
}

// ServeMe returns the caller's profile.
// GET /api/v1/auth/me
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "me")
	defer cancel()

	u, err := h.users.GetByID(ctx, uid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "User not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user failed", err, "")
		return
	}
	uierrors.JSON(w, http.StatusOK, u)
}

type profileInput struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=50,personname"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone" validate:"omitempty,phone"`
	Department *string `json:"department" validate:"omitempty,min=2,max=100"`
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// HandleUpdateMe edits the caller's own profile. Absent fields are kept;
// an empty phone clears it.
// PUT /api/v1/auth/me
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)

	var in profileInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	trimPtr(in.Name)
	trimPtr(in.Email)
	trimPtr(in.Phone)
	trimPtr(in.Department)
	if in.Name != nil && *in.Name == "" {
		uierrors.RenderBadRequest(w, "name must be at least 2 characters")
		return
	}
	if in.Email != nil && *in.Email == "" {
		uierrors.RenderBadRequest(w, "email must be a valid email address")
		return
	}
	if in.Department != nil && *in.Department == "" {
		uierrors.RenderBadRequest(w, "department must be at least 2 characters")
		return
	}
	if err := inputval.Struct(in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()

	if in.Email != nil {
		taken, err := h.users.EmailExistsForOther(ctx, *in.Email, uid)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "check email failed", err, "")
			return
		}
		if taken {
			uierrors.RenderBadRequest(w, "Email already in use")
			return
		}
	}

	u, err := h.users.UpdateProfile(ctx, uid, userstore.ProfileUpdate{
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Department: in.Department,
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail):
		uierrors.RenderBadRequest(w, "Email already in use")
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.RenderNotFound(w, "User not found")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update profile failed", err, "")
		return
	}
	uierrors.JSON(w, http.StatusOK, u)
}
