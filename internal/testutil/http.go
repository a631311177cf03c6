package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// NewContainer registers a DI container private to one test, with a silent logger.
func NewContainer(t *testing.T) ectocontainer.DIContainer {
	t.Helper()

	container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       "test-" + uuid.NewString(),
		AllowCaptiveDependencies: true,
		AllowMissingDependencies: true,
		LoggerConfig:             &ectocontainer.DIContainerLoggerConfig{Enabled: false},
	})
	require.NoError(t, err)

	Provide[ectologger.Logger](t, container, Logger())
	return container
}

// Provide registers value in container under T.
func Provide[T any](t *testing.T, container ectocontainer.DIContainer, value T) {
	t.Helper()
	require.NoError(t, ectoinject.RegisterInstance[T](container, value))
}

// Gate grants every caller Role. Bootstrap lists emails treated as bootstrap admins.
type Gate struct {
	Role      models.Role
	Bootstrap []string
}

func (g *Gate) RequireRole(required models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.Role.Satisfies(required) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}

func (g *Gate) IsBootstrapAdmin(email string) bool {
	for _, b := range g.Bootstrap {
		if b == email {
			return true
		}
	}
	return false
}

// NewEcho returns a server with the production error handler, container and a caller identity.
func NewEcho(email string, container ectocontainer.DIContainer) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(Logger())
	e.Use(middleware.Context())
	e.Use(middleware.Container(container.GetContainerID()))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if email != "" {
				ctx := fernctx.SetUserEmail(c.Request().Context(), email)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	})
	return e
}

// Do sends a request through e. A non-empty body is sent as JSON.
func Do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
