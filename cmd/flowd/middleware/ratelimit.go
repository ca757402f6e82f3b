package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/diagflow/common/ratelimit"
	"github.com/lyzr/diagflow/engine/model"
)

// TieredRateLimit checks the per-tier limit for the workflow a run request
// targets, classifying it by Reference/Diagnosis node count. A nil limiter
// (no Redis configured) always allows, matching the facade-layer-only
// scope of the rate limiter.
func TieredRateLimit(limiter *ratelimit.RateLimiter, resolve func(echo.Context) (*model.Workflow, bool)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}

			wf, ok := resolve(c)
			if !ok {
				return next(c)
			}

			profile := ratelimit.InspectWorkflow(wf)
			result, err := limiter.CheckTieredLimit(c.Request().Context(), callerID(c), profile.Tier)
			if err != nil {
				// Fail open: a limiter outage must not take down execution.
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "rate_limit_exceeded",
					"message": "workflow execution rate limit exceeded for this tier",
					"details": map[string]interface{}{
						"tier":                profile.Tier.String(),
						"limit":               result.Limit,
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}

func callerID(c echo.Context) string {
	if v := c.Request().Header.Get(APIKeyHeader); v != "" {
		return v
	}
	return c.RealIP()
}
