package employee

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
	"github.com/labstack/echo/v4"
)

type Store interface {
	Register(ctx context.Context, email string, req models.RegisterEmployeeRequest) (*models.Employee, error)
	GetByID(ctx context.Context, id string) (*models.Employee, error)
	GetByEmail(ctx context.Context, email string) (*models.Employee, error)
	List(ctx context.Context, status models.EmployeeStatus, page, pageSize int) ([]models.Employee, int, error)
	Review(ctx context.Context, id string, status models.EmployeeStatus, req models.ReviewEmployeeRequest, reviewer string) (*models.Employee, error)
	UpdateRole(ctx context.Context, id string, role models.Role, actor string) (*models.Employee, error)
}

type Events interface {
	EmployeeRegistered(ctx context.Context, employee *models.Employee)
	EmployeeReviewed(ctx context.Context, employee *models.Employee)
}

type Gate interface {
	RequireRole(role models.Role) echo.MiddlewareFunc
}

// Bootstrap reports configured admins that bypass the directory.
type Bootstrap interface {
	IsBootstrapAdmin(email string) bool
}

var errUnavailable = httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")

type listQuery struct {
	Status   models.EmployeeStatus `query:"status" validate:"omitempty,oneof=pending approved rejected disabled"`
	Page     int                   `query:"page" validate:"gte=0"`
	PageSize int                   `query:"page_size" validate:"gte=0,lte=100"`
}

// Register registers employee directory routes. Registration and /me only need an authenticated caller.
func Register(g *echo.Group, gate Gate) {
	admin := gate.RequireRole(models.RoleAdmin)

	g.POST("/register", SelfRegister)
	g.GET("/me", Me)
	g.GET("", List, admin)
	g.POST("/:id/approve", Approve, admin)
	g.POST("/:id/reject", Reject, admin)
	g.PUT("/:id/role", UpdateRole, admin)
	g.POST("/:id/disable", Disable, admin)
}

// SelfRegister creates a pending entry for the caller
func SelfRegister(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[models.RegisterEmployeeRequest](c)
	if err != nil {
		return err
	}

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return errUnavailable
	}
	ctx, events, err := ectoinject.GetContext[Events](ctx)
	if err != nil {
		return errUnavailable
	}

	employee, err := store.Register(ctx, fernctx.GetUserEmail(ctx), req)
	if err != nil {
		return err
	}

	events.EmployeeRegistered(ctx, employee)

	return c.JSON(http.StatusCreated, employee)
}

// Me returns the caller's directory entry. Bootstrap admins without an entry get a synthetic one.
func Me(c echo.Context) error {
	ctx := c.Request().Context()
	email := fernctx.GetUserEmail(ctx)

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return errUnavailable
	}
	ctx, bootstrap, err := ectoinject.GetContext[Bootstrap](ctx)
	if err != nil {
		return errUnavailable
	}

	employee, err := store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if bootstrap.IsBootstrapAdmin(email) {
		if employee == nil {
			employee = &models.Employee{Email: email, RequestedAt: time.Now().UTC()}
		}
		employee.Role = models.RoleAdmin
		employee.Status = models.EmployeeStatusApproved
	}

	if employee == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "employee is not registered")
	}

	return c.JSON(http.StatusOK, employee)
}

func List(c echo.Context) error {
	query, err := utils.BindRequest[listQuery](c)
	if err != nil {
		return err
	}

	page, pageSize := query.Page, query.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	ctx, store, err := ectoinject.GetContext[Store](c.Request().Context())
	if err != nil {
		return errUnavailable
	}

	employees, total, err := store.List(ctx, query.Status, page, pageSize)
	if err != nil {
		return err
	}
	if employees == nil {
		employees = []models.Employee{}
	}

	return c.JSON(http.StatusOK, models.EmployeeListResponse{
		Items:      employees,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Approve approves a pending employee, optionally overriding the requested role
func Approve(c echo.Context) error {
	return review(c, models.EmployeeStatusApproved)
}

func Reject(c echo.Context) error {
	return review(c, models.EmployeeStatusRejected)
}

// Disable revokes access of an approved employee
func Disable(c echo.Context) error {
	return review(c, models.EmployeeStatusDisabled)
}

func UpdateRole(c echo.Context) error {
	ctx := c.Request().Context()

	target, err := loadTarget(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.UpdateRoleRequest](c)
	if err != nil {
		return err
	}

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return errUnavailable
	}

	employee, err := store.UpdateRole(ctx, target.ID, req.Role, fernctx.GetUserEmail(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, employee)
}

func review(c echo.Context, status models.EmployeeStatus) error {
	ctx := c.Request().Context()

	target, err := loadTarget(c)
	if err != nil {
		return err
	}

	var req models.ReviewEmployeeRequest
	if c.Request().ContentLength != 0 {
		if req, err = utils.BindRequest[models.ReviewEmployeeRequest](c); err != nil {
			return err
		}
	}

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return errUnavailable
	}
	ctx, events, err := ectoinject.GetContext[Events](ctx)
	if err != nil {
		return errUnavailable
	}

	employee, err := store.Review(ctx, target.ID, status, req, fernctx.GetUserEmail(ctx))
	if err != nil {
		return err
	}

	events.EmployeeReviewed(ctx, employee)

	return c.JSON(http.StatusOK, employee)
}

// loadTarget loads the employee named by the path. Admins may not review or re-role themselves.
func loadTarget(c echo.Context) (*models.Employee, error) {
	ctx := c.Request().Context()

	id, err := utils.PathID(c, "id")
	if err != nil {
		return nil, err
	}

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return nil, errUnavailable
	}

	employee, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "employee not found")
	}
	if employee.Email == fernctx.GetUserEmail(ctx) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "cannot change your own directory entry")
	}

	return employee, nil
}
