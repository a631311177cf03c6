package candidate

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
	"github.com/labstack/echo/v4"
)

// Store is the candidate persistence the handlers need.
type Store interface {
	Create(ctx context.Context, req models.CreateCandidateRequest, history models.CandidateHistory, actor string) (*models.CandidateRecord, error)
	GetByID(ctx context.Context, id string, includeDeleted bool) (*models.CandidateRecord, error)
	List(ctx context.Context, filter models.CandidateFilter) ([]models.CandidateRecord, int, error)
	Update(ctx context.Context, id string, req models.UpdateCandidateRequest, actor string) (*models.CandidateRecord, error)
	Delete(ctx context.Context, id string, actor string) error
}

// HistoryService computes and persists candidate histories.
type HistoryService interface {
	ComputeHistory(ctx context.Context, record *models.CandidateRecord, trigger string) (models.CandidateHistory, error)
	RefreshHistory(ctx context.Context, id string, trigger string) (*models.CandidateRecord, error)
	RecomputeAll(ctx context.Context) (models.RecomputeResult, error)
}

// Events receives record lifecycle notifications.
type Events interface {
	CandidateCreated(ctx context.Context, record *models.CandidateRecord)
}

var errUnavailable = httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")

// Gate builds role checks for route groups.
type Gate interface {
	RequireRole(role models.Role) echo.MiddlewareFunc
}

// Register registers candidate routes
func Register(g *echo.Group, gate Gate) {
	viewer := gate.RequireRole(models.RoleViewer)
	editor := gate.RequireRole(models.RoleEditor)
	admin := gate.RequireRole(models.RoleAdmin)

	g.GET("", List, viewer)
	g.GET("/:id", Get, viewer)
	g.GET("/:id/history", GetHistory, viewer)
	g.POST("", Create, editor)
	g.PUT("/:id", Update, editor)
	g.DELETE("/:id", Delete, editor)
	g.POST("/:id/history/recompute", RecomputeOne, editor)
	g.POST("/history/recompute", RecomputeAll, admin)
}

// List lists candidate records with filters and pagination
func List(c echo.Context) error {
	ctx := c.Request().Context()

	filter, err := utils.BindRequest[models.CandidateFilter](c)
	if err != nil {
		return err
	}

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return errUnavailable
	}

	records, total, err := store.List(ctx, filter)
	if err != nil {
		return err
	}
	if records == nil {
		records = []models.CandidateRecord{}
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	return c.JSON(http.StatusOK, models.CandidateListResponse{
		Items:      records,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns one record. Soft-deleted records are only returned with include_deleted=true.
func Get(c echo.Context) error {
	record, err := load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// GetHistory returns the stored history of a record
func GetHistory(c echo.Context) error {
	record, err := load(c)
	if err != nil {
		return err
	}

	history := record.CandidateHistory.Data
	if !record.CandidateHistory.Valid {
		history = models.CandidateHistory{Years: []int{}, Aliases: []string{}}
	}
	return c.JSON(http.StatusOK, history)
}

// Create stores a record with its freshly computed history
func Create(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[models.CreateCandidateRequest](c)
	if err != nil {
		return err
	}

	draft := &models.CandidateRecord{
		RecordType:       req.RecordType,
		CandidateName:    req.CandidateName,
		Age:              req.Age,
		ConstituencyName: req.ConstituencyName,
		StateName:        req.StateName,
		Year:             req.Year,
		PartyName:        req.PartyName,
	}
	ctx, service, err := ectoinject.GetContext[HistoryService](ctx)
	if err != nil {
		return errUnavailable
	}
	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return errUnavailable
	}
	ctx, events, err := ectoinject.GetContext[Events](ctx)
	if err != nil {
		return errUnavailable
	}

	history, err := service.ComputeHistory(ctx, draft, matching.TriggerCreate)
	if err != nil {
		return err
	}

	record, err := store.Create(ctx, req, history, fernctx.GetUserEmail(ctx))
	if err != nil {
		return err
	}

	events.CandidateCreated(ctx, record)

	return c.JSON(http.StatusCreated, record)
}

// Update applies a partial update. The record's own history is recomputed when
// a field the matcher reads has changed.
func Update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := utils.PathID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.UpdateCandidateRequest](c)
	if err != nil {
		return err
	}
	if req.IsEmpty() {
		return httperror.NewHTTPError(http.StatusBadRequest, "update request has no fields")
	}

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return errUnavailable
	}

	record, err := store.Update(ctx, id, req, fernctx.GetUserEmail(ctx))
	if err != nil {
		return err
	}

	if req.AffectsHistory() {
		var service HistoryService
		ctx, service, err = ectoinject.GetContext[HistoryService](ctx)
		if err != nil {
			return errUnavailable
		}
		record, err = service.RefreshHistory(ctx, id, matching.TriggerUpdate)
		if err != nil {
			return err
		}
	}

	return c.JSON(http.StatusOK, record)
}

// Delete soft deletes a record
func Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := utils.PathID(c, "id")
	if err != nil {
		return err
	}

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return errUnavailable
	}

	if err := store.Delete(ctx, id, fernctx.GetUserEmail(ctx)); err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithField("candidate_id", id).Info("deleted candidate record")
	}

	return c.NoContent(http.StatusNoContent)
}

// RecomputeOne recomputes and stores the history of one record
func RecomputeOne(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := utils.PathID(c, "id")
	if err != nil {
		return err
	}

	ctx, service, err := ectoinject.GetContext[HistoryService](ctx)
	if err != nil {
		return errUnavailable
	}

	record, err := service.RefreshHistory(ctx, id, matching.TriggerRefresh)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, record)
}

// RecomputeAll rebuilds every history. Returns 409 while another run holds the lock.
func RecomputeAll(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, service, err := ectoinject.GetContext[HistoryService](ctx)
	if err != nil {
		return errUnavailable
	}

	result, err := service.RecomputeAll(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func load(c echo.Context) (*models.CandidateRecord, error) {
	id, err := utils.PathID(c, "id")
	if err != nil {
		return nil, err
	}

	includeDeleted, _ := strconv.ParseBool(c.QueryParam("include_deleted"))

	ctx, store, err := ectoinject.GetContext[Store](c.Request().Context())
	if err != nil {
		return nil, errUnavailable
	}

	record, err := store.GetByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "candidate not found")
	}
	return record, nil
}
