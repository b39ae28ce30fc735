package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RateLimitMiddleware applies the fixed-window limit to public write
// routes. Each (route, client IP) pair has its own window.
type RateLimitMiddleware struct {
	server *server.Server
	store  WindowStore
}

// NewRateLimitMiddleware keeps windows in Redis when it is configured and
// in memory otherwise.
func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	cfg := s.Config.RateLimit

	var store WindowStore
	if s.Redis != nil {
		store = NewRedisWindowStore(s.Redis, cfg.Requests, cfg.Window, s.Logger)
	} else {
		store = NewMemoryWindowStore(cfg.Requests, cfg.Window)
	}

	return NewRateLimitMiddlewareWithStore(s, store)
}

func NewRateLimitMiddlewareWithStore(s *server.Server, store WindowStore) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
		store:  store,
	}
}

// Limit returns the echo rate limiter. Excess requests get a 429 straight
// away and are never queued.
func (r *RateLimitMiddleware) Limit() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(echo.Context) bool {
			return !r.server.Config.RateLimit.Enabled
		},
		Store: r.store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return rateLimitKey(c), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return errs.NewInternalServerError().WithCause(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			r.RecordRateLimitHit(c.Path())

			retryAfter := r.store.ResetAfter(identifier)
			retryValue := ""
			if retryAfter > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				retryValue = retryAfter.Round(time.Second).String()
			}

			GetLogger(c).Warn().
				Str("identifier", identifier).
				Dur("retry_after", retryAfter).
				Msg("rate limit exceeded")

			return errs.NewTooManyRequestsError(
				"Too many requests, please try again later.",
				retryValue,
			).WithCause(err)
		},
	})
}

// rateLimitKey scopes the window to the route pattern and the client IP.
func rateLimitKey(c echo.Context) string {
	path := c.Path()
	if path == "" {
		path = c.Request().URL.Path
	}
	return c.Request().Method + " " + path + "|" + c.RealIP()
}

// RecordRateLimitHit reports the hit to New Relic as a custom event.
func (r *RateLimitMiddleware) RecordRateLimitHit(endpoint string) {
	if app := r.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("RateLimitHit", map[string]interface{}{
			"endpoint": endpoint,
			"status":   http.StatusTooManyRequests,
		})
	}
}
