package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

const SessionCookie = "session_token"

// Authenticator resolves a session token. Unknown or expired tokens yield a
// nil user and a nil error.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// TokenFromRequest reads the session cookie, falling back to a bearer token.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Middleware attaches the session's user to the request context. Requests
// without a valid session pass through anonymously; handlers decide whether
// that is enough. A session lookup failure also passes through anonymously,
// so public routes keep working while the session store is down.
func Middleware(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				logger.Warn("session lookup failed, continuing anonymously", "error", err, "path", r.URL.Path)
				user = nil
			}
			if user != nil {
				r = r.WithContext(ContextWithUser(r.Context(), user))
			}

			next.ServeHTTP(w, r)
		})
	}
}
