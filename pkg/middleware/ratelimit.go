package middleware

import (
	goctx "context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/labstack/echo/v4"
)

// RateLimitFunc records one request for key and reports whether it may proceed.
type RateLimitFunc func(ctx goctx.Context, key string) (allowed bool, retryIn time.Duration, err error)

// RateLimit throttles a route per caller email. Limiter failures let the
// request through.
func RateLimit(logger ectologger.Logger, scope string, limit RateLimitFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			caller := context.GetUserEmail(ctx)
			if caller == "" {
				caller = c.RealIP()
			}

			allowed, retryIn, err := limit(ctx, scope+":"+caller)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("rate limiter unavailable, allowing request")
				return next(c)
			}
			if !allowed {
				seconds := int(math.Ceil(retryIn.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return httperror.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
