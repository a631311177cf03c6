package match

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
	"github.com/labstack/echo/v4"
)

// Matcher ranks bulk name searches.
type Matcher interface {
	BulkMatch(ctx context.Context, req models.BulkMatchRequest) (models.BulkMatchResponse, error)
}

type Gate interface {
	RequireRole(role models.Role) echo.MiddlewareFunc
}

// Register registers match routes. throttles run on the bulk route after the role check.
func Register(g *echo.Group, gate Gate, throttles ...echo.MiddlewareFunc) {
	mws := append([]echo.MiddlewareFunc{gate.RequireRole(models.RoleViewer)}, throttles...)
	g.POST("/bulk", Bulk, mws...)
}

// Bulk searches the candidate table for every requested name. Results are
// approximate: only `sampled` distinct names were considered.
func Bulk(c echo.Context) error {
	req, err := utils.BindRequest[models.BulkMatchRequest](c)
	if err != nil {
		return err
	}

	ctx, matcher, err := ectoinject.GetContext[Matcher](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	// names, threshold and sample limit are checked by the matcher
	resp, err := matcher.BulkMatch(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}
