package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/labstack/echo/v4"
)

// AuthMiddleware guards the admin routes with a Clerk session.
type AuthMiddleware struct {
	server *server.Server
}

func NewAuthMiddleware(s *server.Server) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
	}
}

// Enabled reports whether a Clerk secret is configured.
func (auth *AuthMiddleware) Enabled() bool {
	return auth.server.Config.Auth.SecretKey != ""
}

// AdminGuard returns RequireAuth when Clerk is configured and a no-op
// otherwise, keeping the admin listing open by default.
func (auth *AuthMiddleware) AdminGuard() echo.MiddlewareFunc {
	if !auth.Enabled() {
		auth.server.Logger.Warn().Msg("no auth secret configured, admin routes are unauthenticated")
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	return auth.RequireAuth
}

// RequireAuth verifies the Bearer session token and stores the subject
// under UserIDKey.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return echo.WrapMiddleware(
		clerkhttp.WithHeaderAuthorization(
			clerkhttp.AuthorizationFailureHandler(http.HandlerFunc(auth.writeUnauthorized)),
		),
	)(func(c echo.Context) error {
		claims, ok := clerk.SessionClaimsFromContext(c.Request().Context())
		if !ok {
			GetLogger(c).Warn().
				Str("function", "RequireAuth").
				Msg("could not get session claims from context")
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		c.Set(UserIDKey, claims.Subject)

		GetLogger(c).Info().
			Str("function", "RequireAuth").
			Str("user_id", claims.Subject).
			Msg("user authenticated successfully")

		return next(c)
	})
}

// writeUnauthorized runs outside echo, so it writes the error body itself.
func (auth *AuthMiddleware) writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	if err := json.NewEncoder(w).Encode(errs.NewUnauthorizedError("Unauthorized", false)); err != nil {
		auth.server.Logger.Error().Err(err).Str("function", "RequireAuth").Msg("failed to write JSON response")
		return
	}

	auth.server.Logger.Warn().
		Str("function", "RequireAuth").
		Str("path", r.URL.Path).
		Msg("rejected request without a valid session")
}
