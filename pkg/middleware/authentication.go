package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/auth"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// TokenExtractor pulls the raw credential off a request.
type TokenExtractor func(req *http.Request) string

// BearerToken reads `Authorization: Bearer <token>`.
func BearerToken(req *http.Request) string {
	header := req.Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// HeaderToken reads the credential from a plain header.
func HeaderToken(name string) TokenExtractor {
	return func(req *http.Request) string {
		return req.Header.Get(name)
	}
}

// Authentication resolves the caller and stores the principal on the request context.
func Authentication(logger ectologger.Logger, resolver auth.PrincipalResolver, extract TokenExtractor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracing.StartSpan(c.Request().Context(), "middleware.Authentication")
			defer span.End()

			token := extract(c.Request())
			if token == "" {
				logger.WithContext(ctx).Warn("request is missing credentials")
				return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
			}

			principal, err := resolver.Resolve(ctx, token)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("credentials are invalid")
				if errors.Is(err, auth.ErrMissingToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
			}

			ctx = context.SetUserEmail(ctx, principal.Email)
			ctx = context.SetSubject(ctx, principal.Subject)
			ctx = context.SetRoles(ctx, principal.Roles)

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
