package alias

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
	"github.com/labstack/echo/v4"
)

type Store interface {
	List(ctx context.Context, page, pageSize int) ([]models.CandidateAlias, int, error)
	Upsert(ctx context.Context, req models.UpsertAliasRequest, actor string) (*models.CandidateAlias, error)
	Delete(ctx context.Context, alias string) error
}

type Gate interface {
	RequireRole(role models.Role) echo.MiddlewareFunc
}

type listQuery struct {
	Page     int `query:"page" validate:"gte=0"`
	PageSize int `query:"page_size" validate:"gte=0,lte=500"`
}

// Register registers alias routes. The alias table only feeds the bulk matcher so editors own it.
func Register(g *echo.Group, gate Gate) {
	editor := gate.RequireRole(models.RoleEditor)

	g.GET("", List, editor)
	g.POST("", Upsert, editor)
	g.DELETE("/:alias", Delete, editor)
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
		pageSize = 50
	}

	ctx, store, err := ectoinject.GetContext[Store](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	aliases, total, err := store.List(ctx, page, pageSize)
	if err != nil {
		return err
	}
	if aliases == nil {
		aliases = []models.CandidateAlias{}
	}

	return c.JSON(http.StatusOK, models.AliasListResponse{
		Items:      aliases,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Upsert creates or repoints an alias
func Upsert(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[models.UpsertAliasRequest](c)
	if err != nil {
		return err
	}

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	alias, err := store.Upsert(ctx, req, fernctx.GetUserEmail(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, alias)
}

func Delete(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	name := c.Param("alias")
	if err := store.Delete(ctx, name); err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithField("alias", name).Info("deleted candidate alias")
	}

	return c.NoContent(http.StatusNoContent)
}
