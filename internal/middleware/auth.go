package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/deskboard/deskboard/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the validated {user, role} pair from the token-issuing
// collaborator. This service verifies tokens; it never issues them.
type Identity struct {
	UserID string
	Role   string
}

// Claims is the JWT payload the dashboard issues at login.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth is the JWT verification middleware.
type Auth struct {
	secret []byte
}

// NewAuth creates an Auth middleware verifying HMAC-signed tokens.
func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// Handler rejects requests without a valid token and stores the identity
// in the request context. The token comes from the Authorization header,
// or from a "token" query parameter for websocket upgrades, where browser
// clients cannot set headers.
func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		ident, err := a.verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) verify(token string) (*Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	role := claims.Role
	if role == "" {
		role = domain.RoleUser
	}
	return &Identity{UserID: claims.Subject, Role: role}, nil
}

// RequireAdmin rejects non-admin identities. Must run after Handler.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := GetIdentity(r.Context())
		if ident == nil || ident.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity retrieves the validated identity from the request context.
func GetIdentity(ctx context.Context) *Identity {
	ident, _ := ctx.Value(identityContextKey).(*Identity)
	return ident
}

// WithIdentity returns a context carrying the given identity. Used by
// tests and internal callers.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
