package middleware

import (
	goctx "context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/auth"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newServer() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = Error(testLogger())
	e.Use(Context())
	e.Use(Logger(testLogger()))
	return e
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestContext(t *testing.T) {
	e := newServer()
	var seen goctx.Context
	e.GET("/things/:id", func(c echo.Context) error {
		seen = c.Request().Context()
		return c.NoContent(http.StatusNoContent)
	})

	t.Run("generates a request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/1", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NotEmpty(t, context.GetRequestID(seen))
		assert.Equal(t, context.GetRequestID(seen), rec.Header().Get(echo.HeaderXRequestID))
		assert.Equal(t, http.MethodGet, context.GetMethod(seen))
		assert.Equal(t, "/things/:id", context.GetRoute(seen))
	})

	t.Run("keeps the caller's request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/things/1", nil)
		req.Header.Set(echo.HeaderXRequestID, "req-42")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "req-42", context.GetRequestID(seen))
		assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))
	})
}

func TestError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"http error", httperror.NewHTTPError(http.StatusNotFound, "candidate record not found"), http.StatusNotFound, "candidate record not found"},
		{"echo error", echo.NewHTTPError(http.StatusUnauthorized, "missing credentials"), http.StatusUnauthorized, "missing credentials"},
		{"validation error", &matching.ValidationError{Field: "names", Message: "at least one name is required"}, http.StatusBadRequest, "invalid names: at least one name is required"},
		{"wrapped validation error", fmt.Errorf("bulk: %w", &matching.ValidationError{Field: "sample_limit", Message: "must not be negative"}), http.StatusBadRequest, "invalid sample_limit: must not be negative"},
		{"recompute running", matching.ErrRecomputeInProgress, http.StatusConflict, matching.ErrRecomputeInProgress.Error()},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newServer()
			e.GET("/", func(c echo.Context) error { return tt.err })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(echo.HeaderXRequestID, "req-1")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, "req-1", body.RequestID)
			assert.NotNil(t, body.Meta)
		})
	}

	t.Run("unknown route", func(t *testing.T) {
		e := newServer()
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type stubResolver struct {
	principal auth.Principal
	err       error
	tokens    []string
}

func (s *stubResolver) Resolve(_ goctx.Context, token string) (auth.Principal, error) {
	s.tokens = append(s.tokens, token)
	return s.principal, s.err
}

func TestAuthentication(t *testing.T) {
	setup := func(resolver auth.PrincipalResolver, extract TokenExtractor) (*echo.Echo, *goctx.Context) {
		e := newServer()
		var seen goctx.Context
		e.GET("/me", func(c echo.Context) error {
			seen = c.Request().Context()
			return c.NoContent(http.StatusOK)
		}, Authentication(testLogger(), resolver, extract))
		return e, &seen
	}

	t.Run("bearer token resolves principal", func(t *testing.T) {
		resolver := &stubResolver{principal: auth.Principal{Email: "a@example.org", Subject: "sub-1", Roles: []string{"r"}}}
		e, seen := setup(resolver, BearerToken)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer tok-123")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"tok-123"}, resolver.tokens)
		assert.Equal(t, "a@example.org", context.GetUserEmail(*seen))
		assert.Equal(t, "sub-1", context.GetSubject(*seen))
		assert.Equal(t, []string{"r"}, context.GetRoles(*seen))
	})

	t.Run("missing bearer is 401", func(t *testing.T) {
		resolver := &stubResolver{}
		e, _ := setup(resolver, BearerToken)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "Basic abc")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, resolver.tokens)
	})

	t.Run("resolver failure is 401", func(t *testing.T) {
		e, _ := setup(&stubResolver{err: auth.ErrInvalidToken}, BearerToken)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer bad")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid credentials", decodeError(t, rec).Message)
	})

	t.Run("header resolver for local runs", func(t *testing.T) {
		e, seen := setup(auth.NewHeaderResolver(), HeaderToken(auth.HeaderUserEmail))

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(auth.HeaderUserEmail, "Dev@Example.org")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "dev@example.org", context.GetUserEmail(*seen))
	})
}

type stubDirectory struct {
	employees map[string]*models.Employee
	err       error
}

func (d stubDirectory) GetByEmail(_ goctx.Context, email string) (*models.Employee, error) {
	return d.employees[email], d.err
}

func TestRequireRole(t *testing.T) {
	directory := stubDirectory{employees: map[string]*models.Employee{
		"admin@example.org":    {Email: "admin@example.org", Role: models.RoleAdmin, Status: models.EmployeeStatusApproved},
		"editor@example.org":   {Email: "editor@example.org", Role: models.RoleEditor, Status: models.EmployeeStatusApproved},
		"viewer@example.org":   {Email: "viewer@example.org", Role: models.RoleViewer, Status: models.EmployeeStatusApproved},
		"pending@example.org":  {Email: "pending@example.org", Role: models.RoleEditor, Status: models.EmployeeStatusPending},
		"disabled@example.org": {Email: "disabled@example.org", Role: models.RoleAdmin, Status: models.EmployeeStatusDisabled},
	}}
	authorizer := NewAuthorizer(testLogger(), directory, []string{" Boss@Example.org "})

	tests := []struct {
		email    string
		required models.Role
		code     int
	}{
		{"admin@example.org", models.RoleEditor, http.StatusOK},
		{"admin@example.org", models.RoleAdmin, http.StatusOK},
		{"editor@example.org", models.RoleEditor, http.StatusOK},
		{"editor@example.org", models.RoleViewer, http.StatusOK},
		{"editor@example.org", models.RoleAdmin, http.StatusForbidden},
		{"viewer@example.org", models.RoleEditor, http.StatusForbidden},
		{"pending@example.org", models.RoleViewer, http.StatusForbidden},
		{"disabled@example.org", models.RoleViewer, http.StatusForbidden},
		{"stranger@example.org", models.RoleViewer, http.StatusForbidden},
		{"boss@example.org", models.RoleAdmin, http.StatusOK},
		{"", models.RoleViewer, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s needs %s", tt.email, tt.required), func(t *testing.T) {
			e := newServer()
			e.GET("/", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}, func(next echo.HandlerFunc) echo.HandlerFunc {
				return func(c echo.Context) error {
					ctx := context.SetUserEmail(c.Request().Context(), tt.email)
					c.SetRequest(c.Request().WithContext(ctx))
					return next(c)
				}
			}, authorizer.RequireRole(tt.required))

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	t.Run("directory failure propagates", func(t *testing.T) {
		failing := NewAuthorizer(testLogger(), stubDirectory{err: httperror.NewHTTPError(http.StatusInternalServerError, "failed to get employee")}, nil)
		e := newServer()
		e.GET("/", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		}, func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				c.SetRequest(c.Request().WithContext(context.SetUserEmail(c.Request().Context(), "a@b.c")))
				return next(c)
			}
		}, failing.RequireRole(models.RoleViewer))

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	withEmail := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(context.SetUserEmail(c.Request().Context(), "a@b.c")))
			return next(c)
		}
	}

	t.Run("denied requests get 429 with retry-after", func(t *testing.T) {
		var keys []string
		limit := func(_ goctx.Context, key string) (bool, time.Duration, error) {
			keys = append(keys, key)
			return len(keys) <= 1, 1500 * time.Millisecond, nil
		}

		e := newServer()
		e.POST("/bulk", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		}, withEmail, RateLimit(testLogger(), "bulk-match", limit))

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bulk", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bulk", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
		assert.Equal(t, "rate limit exceeded", decodeError(t, rec).Message)
		assert.Equal(t, []string{"bulk-match:a@b.c", "bulk-match:a@b.c"}, keys)
	})

	t.Run("limiter failure lets the request through", func(t *testing.T) {
		limit := func(goctx.Context, string) (bool, time.Duration, error) {
			return false, 0, errors.New("redis down")
		}

		e := newServer()
		e.POST("/bulk", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		}, withEmail, RateLimit(testLogger(), "bulk-match", limit))

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bulk", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestContainer(t *testing.T) {
	id := "middleware-" + uuid.NewString()
	container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:           id,
		LoggerConfig: &ectocontainer.DIContainerLoggerConfig{Enabled: false},
	})
	require.NoError(t, err)
	require.NoError(t, ectoinject.RegisterInstance[ectologger.Logger](container, testLogger()))

	t.Run("handlers resolve from the active container", func(t *testing.T) {
		e := newServer()
		var resolved ectologger.Logger
		e.GET("/things", func(c echo.Context) error {
			_, logger, err := ectoinject.GetContext[ectologger.Logger](c.Request().Context())
			if err != nil {
				return err
			}
			resolved = logger
			return c.NoContent(http.StatusNoContent)
		}, Container(id))

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NotNil(t, resolved)
	})

	t.Run("unknown container is unavailable", func(t *testing.T) {
		e := newServer()
		e.GET("/things", func(c echo.Context) error {
			return c.NoContent(http.StatusNoContent)
		}, Container("missing-"+uuid.NewString()))

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "service unavailable", decodeError(t, rec).Message)
	})
}
