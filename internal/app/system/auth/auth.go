// Package auth authenticates API requests with signed bearer tokens.
//
// A TokenManager issues HS256 JWTs at login. Authenticate reads the token
// from the Authorization header (or the token cookie), re-fetches the user
// so role changes and deletions take effect immediately, and injects a
// SessionUser into the request context.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MinSecretLen is the shortest signing secret accepted outside dev.
const MinSecretLen = 32

var (
	ErrNoToken      = errors.New("auth: no token")
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrUserGone is returned by a UserFetcher when the token's user no
	// longer exists.
	ErrUserGone = errors.New("auth: user not found")
)

// SessionUser is the authenticated caller as seen by handlers.
type SessionUser struct {
	ID         string
	Name       string
	Email      string
	Role       string
	Department string
}

// Claims is the JWT payload.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies tokens.
type TokenManager struct {
	secret     []byte
	expiry     time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

// NewTokenManager returns a manager signing with secret. expiry must be
// positive. secure marks the token cookie Secure with SameSite=None.
func NewTokenManager(secret string, expiry time.Duration, cookieName string, secure bool) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("jwt expiry must be positive, got %s", expiry)
	}
	if cookieName == "" {
		cookieName = "token"
	}
	return &TokenManager{
		secret:     []byte(secret),
		expiry:     expiry,
		cookieName: cookieName,
		secure:     secure,
		now:        time.Now,
	}, nil
}

// Issue signs a token for the given user.
func (m *TokenManager) Issue(userID, role string) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies signature, algorithm and expiry.
func (m *TokenManager) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims, nil
}

// SetCookie stores token in an HttpOnly cookie matching the token lifetime.
func (m *TokenManager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, m.cookie(token, m.now().Add(m.expiry)))
}

// ClearCookie expires the token cookie.
func (m *TokenManager) ClearCookie(w http.ResponseWriter) {
	c := m.cookie("none", m.now().Add(10*time.Second))
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (m *TokenManager) cookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.secure {
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

// TokenFrom returns the bearer token of r, falling back to the cookie.
func (m *TokenManager) TokenFrom(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(tok) != "" {
			return strings.TrimSpace(tok), nil
		}
	}
	if c, err := r.Cookie(m.cookieName); err == nil && c.Value != "" && c.Value != "none" {
		return c.Value, nil
	}
	return "", ErrNoToken
}

// UserFetcher loads the current state of a user. It returns ErrUserGone
// when the user no longer exists.
type UserFetcher interface {
	FetchSessionUser(ctx context.Context, id primitive.ObjectID) (*SessionUser, error)
}

// Authenticate injects the caller into the context when a valid token is
// present. Requests without a usable token pass through anonymously; use
// RequireSignedIn or RequireRole to enforce authentication.
func (m *TokenManager) Authenticate(users UserFetcher, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := m.TokenFrom(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := m.Parse(tok)
			if err != nil {
				log.Debug("rejecting token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			oid, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			u, err := users.FetchSessionUser(r.Context(), oid)
			if err != nil {
				if errors.Is(err, ErrUserGone) {
					writeError(w, http.StatusUnauthorized, "User not found")
					return
				}
				log.Error("fetch session user", zap.Error(err), zap.String("user_id", claims.UserID))
				writeError(w, http.StatusInternalServerError, "Server error")
				return
			}
			next.ServeHTTP(w, WithTestUser(r, u))
		})
	}
}

// RequireSignedIn rejects anonymous requests with 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous requests with 401 and callers whose role
// is not listed with 403. Roles compare case-insensitively.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				writeError(w, http.StatusForbidden,
					fmt.Sprintf("User role %s is not authorized to access this route", u.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ctxKey struct{}

// CurrentUser returns the authenticated caller, if any.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(ctxKey{}).(*SessionUser)
	return u, ok && u != nil
}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *SessionUser) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// WithTestUser returns r with u attached, as Authenticate would. Tests use
// it to skip token handling.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(WithUser(r.Context(), u))
}

// writeError mirrors the API envelope without importing the feature layer.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
