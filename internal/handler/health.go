package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/middleware"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/labstack/echo/v4"
)

// pingFunc checks one dependency.
type pingFunc func(ctx context.Context) error

// HealthHandler serves /status. The database is required; Redis is
// reported but only degrades the result, since the rate limiter and the
// email path both work without it.
type HealthHandler struct {
	Handler
	database pingFunc
	redis    pingFunc
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	h := &HealthHandler{Handler: NewHandler(s)}
	if s.DB != nil {
		h.database = s.DB.Ping
	}
	if s.Redis != nil {
		h.redis = func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		}
	}
	return h
}

// CheckHealth answers 200 when the database is reachable and 503 otherwise.
// With health checks disabled it only reports liveness.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	cfg := h.server.Config
	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": cfg.Primary.Env,
	}

	if !cfg.Observability.HealthChecks.Enabled {
		return c.JSON(http.StatusOK, response)
	}

	checks := make(map[string]interface{})
	response["checks"] = checks
	isHealthy := true
	timeout := cfg.Observability.HealthChecks.Timeout

	if err := h.runCheck(c.Request().Context(), "database", h.database, timeout, checks); err != nil {
		isHealthy = false
	}

	if h.redis != nil {
		if err := h.runCheck(c.Request().Context(), "redis", h.redis, timeout, checks); err != nil {
			response["status"] = "degraded"
		}
	}

	if !isHealthy {
		response["status"] = "unhealthy"

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		h.recordHealthError(map[string]interface{}{
			"check_type":        "overall",
			"operation":         "health_check",
			"error_type":        "overall_unhealthy",
			"total_duration_ms": time.Since(start).Milliseconds(),
		})

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Debug().
		Dur("total_duration", time.Since(start)).
		Msg("health check passed")

	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}

func (h *HealthHandler) runCheck(ctx context.Context, name string, ping pingFunc, timeout time.Duration, checks map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	checkStart := time.Now()
	err := fmt.Errorf("%s not configured", name)
	if ping != nil {
		err = ping(ctx)
	}
	elapsed := time.Since(checkStart)

	if err != nil {
		checks[name] = map[string]interface{}{
			"status":        "unhealthy",
			"response_time": elapsed.String(),
			"error":         err.Error(),
		}

		h.server.Logger.Error().
			Err(err).
			Str("check", name).
			Dur("response_time", elapsed).
			Msg("health check failed")

		h.recordHealthError(map[string]interface{}{
			"check_type":       name,
			"operation":        "health_check",
			"error_type":       name + "_unhealthy",
			"response_time_ms": elapsed.Milliseconds(),
			"error_message":    err.Error(),
		})
		return err
	}

	checks[name] = map[string]interface{}{
		"status":        "healthy",
		"response_time": elapsed.String(),
	}
	return nil
}

func (h *HealthHandler) recordHealthError(params map[string]interface{}) {
	if app := h.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("HealthCheckError", params)
	}
}
