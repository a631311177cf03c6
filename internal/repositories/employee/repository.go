package employee

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	tableName       = "employees"
	uniqueViolation = "23505"
	defaultPageSize = 20
	maxPageSize     = 100
)

var employeeColumns = []string{
	"id", "email", "name", "role", "status", "requested_at", "reviewed_at", "reviewed_by", "review_note", "updated_at",
}

// EmployeeRepository defines employee directory data access
type EmployeeRepository interface {
	Register(ctx context.Context, email string, req models.RegisterEmployeeRequest) (*models.Employee, error)
	GetByID(ctx context.Context, id string) (*models.Employee, error)
	GetByEmail(ctx context.Context, email string) (*models.Employee, error)
	List(ctx context.Context, status models.EmployeeStatus, page, pageSize int) ([]models.Employee, int, error)
	Review(ctx context.Context, id string, status models.EmployeeStatus, req models.ReviewEmployeeRequest, reviewer string) (*models.Employee, error)
	UpdateRole(ctx context.Context, id string, role models.Role, actor string) (*models.Employee, error)
}

// Repository implements EmployeeRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new employee repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Register creates a pending directory entry. Emails are unique case-insensitively.
func (r *Repository) Register(ctx context.Context, email string, req models.RegisterEmployeeRequest) (*models.Employee, error) {
	ctx, span := tracing.StartSpan(ctx, "EmployeeRepository.Register")
	defer span.End()

	role := req.RequestedRole
	if role == "" {
		role = models.RoleViewer
	}

	now := time.Now().UTC()
	employee := &models.Employee{
		ID:          uuid.New().String(),
		Email:       normalizers.NormalizeEmail(email),
		Name:        strings.TrimSpace(req.Name),
		Role:        role,
		Status:      models.EmployeeStatusPending,
		RequestedAt: now,
		UpdatedAt:   now,
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName)
	ib.Cols("id", "email", "name", "role", "status", "requested_at", "updated_at")
	ib.Values(employee.ID, employee.Email, employee.Name, employee.Role, employee.Status, employee.RequestedAt, employee.UpdatedAt)

	query, args := ib.Build()

	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, httperror.NewHTTPError(http.StatusConflict, "an employee with this email is already registered")
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to register employee")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to register employee")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":    employee.ID,
		"email": employee.Email,
		"role":  employee.Role,
	}).Info("registered employee")

	return employee, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Employee, error) {
	ctx, span := tracing.StartSpan(ctx, "EmployeeRepository.GetByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	sb := database.NewSelectBuilder()
	sb.Select(employeeColumns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	return r.getOne(ctx, sb.Build)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Employee, error) {
	ctx, span := tracing.StartSpan(ctx, "EmployeeRepository.GetByEmail")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(employeeColumns...)
	sb.From(tableName)
	sb.Where(database.EqualFold(sb, "email", email))

	return r.getOne(ctx, sb.Build)
}

// List returns employees, optionally narrowed to one status, newest requests first
func (r *Repository) List(ctx context.Context, status models.EmployeeStatus, page, pageSize int) ([]models.Employee, int, error) {
	ctx, span := tracing.StartSpan(ctx, "EmployeeRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	countSB := database.NewSelectBuilder()
	countSB.Select("COUNT(*)")
	countSB.From(tableName)
	if status != "" {
		countSB.Where(countSB.Equal("status", status))
	}
	countQuery, countArgs := countSB.Build()

	var total int
	if err := r.db.Conn(ctx).GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count employees")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list employees")
	}

	sb := database.NewSelectBuilder()
	sb.Select(employeeColumns...)
	sb.From(tableName)
	if status != "" {
		sb.Where(sb.Equal("status", status))
	}
	sb.OrderBy("requested_at DESC", "id")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()

	employees := []models.Employee{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &employees, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list employees")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list employees")
	}

	return employees, total, nil
}

// Review moves an employee to status, recording the reviewer and an optional role and note
func (r *Repository) Review(ctx context.Context, id string, status models.EmployeeStatus, req models.ReviewEmployeeRequest, reviewer string) (*models.Employee, error) {
	ctx, span := tracing.StartSpan(ctx, "EmployeeRepository.Review")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "employee not found")
	}

	now := time.Now().UTC()
	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	assignments := []string{
		ub.Assign("status", status),
		ub.Assign("reviewed_at", now),
		ub.Assign("reviewed_by", reviewer),
		ub.Assign("updated_at", now),
	}
	if req.Role != nil {
		assignments = append(assignments, ub.Assign("role", *req.Role))
	}
	if req.Note != nil {
		assignments = append(assignments, ub.Assign("review_note", strings.TrimSpace(*req.Note)))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id))

	if err := r.execOne(ctx, ub.Build, "failed to review employee"); err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":       id,
		"status":   status,
		"reviewer": reviewer,
	}).Info("reviewed employee")

	return r.GetByID(ctx, id)
}

func (r *Repository) UpdateRole(ctx context.Context, id string, role models.Role, actor string) (*models.Employee, error) {
	ctx, span := tracing.StartSpan(ctx, "EmployeeRepository.UpdateRole")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "employee not found")
	}

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("role", role),
		ub.Assign("reviewed_by", actor),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))

	if err := r.execOne(ctx, ub.Build, "failed to update employee role"); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *Repository) getOne(ctx context.Context, build func() (string, []any)) (*models.Employee, error) {
	query, args := build()

	var employee models.Employee
	if err := r.db.Conn(ctx).GetContext(ctx, &employee, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get employee")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get employee")
	}

	return &employee, nil
}

func (r *Repository) execOne(ctx context.Context, build func() (string, []any), failure string) error {
	query, args := build()

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error(failure)
		return httperror.NewHTTPError(http.StatusInternalServerError, failure)
	}

	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "employee not found")
	}

	return nil
}
