package middleware

import (
	goctx "context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/labstack/echo/v4"
)

// EmployeeKey is the echo context key holding the caller's directory entry.
const EmployeeKey = "employee"

// Directory looks callers up in the employee directory.
type Directory interface {
	GetByEmail(ctx goctx.Context, email string) (*models.Employee, error)
}

// Authorizer gates routes on the caller's directory role. Bootstrap admins
// are approved admins even before they have a directory entry.
type Authorizer struct {
	logger    ectologger.Logger
	directory Directory
	bootstrap map[string]struct{}
}

func NewAuthorizer(logger ectologger.Logger, directory Directory, bootstrapAdmins []string) *Authorizer {
	bootstrap := make(map[string]struct{}, len(bootstrapAdmins))
	for _, email := range bootstrapAdmins {
		if email = normalizers.NormalizeEmail(email); email != "" {
			bootstrap[email] = struct{}{}
		}
	}

	return &Authorizer{
		logger:    logger,
		directory: directory,
		bootstrap: bootstrap,
	}
}

// IsBootstrapAdmin reports whether email was configured as a bootstrap admin.
func (a *Authorizer) IsBootstrapAdmin(email string) bool {
	_, ok := a.bootstrap[normalizers.NormalizeEmail(email)]
	return ok
}

// RequireRole rejects callers that are not approved or whose role does not satisfy required.
// Admin satisfies every role.
func (a *Authorizer) RequireRole(required models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			email := context.GetUserEmail(ctx)
			if email == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
			}

			employee, err := a.directory.GetByEmail(ctx, email)
			if err != nil {
				return err
			}

			role, ok := a.effectiveRole(email, employee)
			if !ok {
				a.logger.WithContext(ctx).WithField("email", email).Warn("caller is not an approved employee")
				return echo.NewHTTPError(http.StatusForbidden, "employee is not approved")
			}
			if !role.Satisfies(required) {
				a.logger.WithContext(ctx).WithFields(map[string]any{
					"email":    email,
					"role":     role,
					"required": required,
				}).Warn("caller lacks the required role")
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}

			ctx = context.SetRoles(ctx, []string{string(role)})
			c.SetRequest(c.Request().WithContext(ctx))
			if employee != nil {
				c.Set(EmployeeKey, employee)
			}

			return next(c)
		}
	}
}

func (a *Authorizer) effectiveRole(email string, employee *models.Employee) (models.Role, bool) {
	if a.IsBootstrapAdmin(email) {
		return models.RoleAdmin, true
	}
	if employee == nil || employee.Status != models.EmployeeStatusApproved {
		return "", false
	}
	return employee.Role, true
}
