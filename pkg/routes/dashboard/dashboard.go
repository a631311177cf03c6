package dashboard

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
	"github.com/labstack/echo/v4"
)

type Reporter interface {
	Summary(ctx context.Context, year *int) (*models.DashboardSummary, error)
}

type Gate interface {
	RequireRole(role models.Role) echo.MiddlewareFunc
}

type summaryQuery struct {
	Year *int `query:"year" validate:"omitempty,gte=1947,lte=2100"`
}

func Register(g *echo.Group, gate Gate) {
	g.GET("/summary", Summary, gate.RequireRole(models.RoleViewer))
}

// Summary returns grouped record counts, optionally for one election year
func Summary(c echo.Context) error {
	query, err := utils.BindRequest[summaryQuery](c)
	if err != nil {
		return err
	}

	ctx, reporter, err := ectoinject.GetContext[Reporter](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	summary, err := reporter.Summary(ctx, query.Year)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summary)
}
