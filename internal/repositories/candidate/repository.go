package candidate

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	tableName = "candidate_records"

	// each row binds two parameters; postgres allows 65535 per statement
	maxBulkUpdateRows = 1000

	defaultPageSize = 20
	maxPageSize     = 100

	// listing by name uses a looser trigram floor than history pools
	listNameSimilarity = 0.3
)

var candidateColumns = []string{
	"id", "record_type", "candidate_name", "age", "gender", "constituency_name", "state_name", "year",
	"party_name", "education", "total_assets", "total_liabilities", "criminal_cases", "votes",
	"result_position", "candidate_history", "created_by", "updated_by", "deleted_by",
	"created_at", "updated_at", "deleted_at",
}

var poolColumns = []string{"id", "candidate_name", "age", "constituency_name", "state_name", "year", "party_name"}

// CandidateRepository defines candidate record data access
type CandidateRepository interface {
	matching.CandidateStore
	Create(ctx context.Context, req models.CreateCandidateRequest, history models.CandidateHistory, actor string) (*models.CandidateRecord, error)
	List(ctx context.Context, filter models.CandidateFilter) ([]models.CandidateRecord, int, error)
	Update(ctx context.Context, id string, req models.UpdateCandidateRequest, actor string) (*models.CandidateRecord, error)
	Delete(ctx context.Context, id string, actor string) error
	Summary(ctx context.Context, year *int) (*models.DashboardSummary, error)
}

// Repository implements CandidateRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new candidate repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a candidate record together with its precomputed history
func (r *Repository) Create(ctx context.Context, req models.CreateCandidateRequest, history models.CandidateHistory, actor string) (*models.CandidateRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "CandidateRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	record := &models.CandidateRecord{
		ID:               uuid.New().String(),
		RecordType:       req.RecordType,
		CandidateName:    strings.TrimSpace(req.CandidateName),
		Age:              req.Age,
		Gender:           req.Gender,
		ConstituencyName: trimPtr(req.ConstituencyName),
		StateName:        trimPtr(req.StateName),
		Year:             req.Year,
		PartyName:        trimPtr(req.PartyName),
		Education:        req.Education,
		TotalAssets:      req.TotalAssets,
		TotalLiabilities: req.TotalLiabilities,
		CriminalCases:    req.CriminalCases,
		Votes:            req.Votes,
		ResultPosition:   req.ResultPosition,
		CandidateHistory: database.NewJSONB(history),
		CreatedBy:        actorPtr(actor),
		UpdatedBy:        actorPtr(actor),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName)
	ib.Cols(
		"id", "record_type", "candidate_name", "age", "gender", "constituency_name", "state_name", "year",
		"party_name", "education", "total_assets", "total_liabilities", "criminal_cases", "votes",
		"result_position", "candidate_history", "created_by", "updated_by", "created_at", "updated_at",
	)
	ib.Values(
		record.ID, record.RecordType, record.CandidateName, record.Age, record.Gender, record.ConstituencyName,
		record.StateName, record.Year, record.PartyName, record.Education, record.TotalAssets,
		record.TotalLiabilities, record.CriminalCases, record.Votes, record.ResultPosition,
		record.CandidateHistory, record.CreatedBy, record.UpdatedBy, record.CreatedAt, record.UpdatedAt,
	)

	query, args := ib.Build()

	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create candidate record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create candidate record")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":          record.ID,
		"record_type": record.RecordType,
		"times_stood": history.TimesStood,
	}).Info("created candidate record")

	return record, nil
}

// GetByID returns nil when the record does not exist
func (r *Repository) GetByID(ctx context.Context, id string, includeDeleted bool) (*models.CandidateRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "CandidateRepository.GetByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	sb := database.NewSelectBuilder()
	sb.Select(candidateColumns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))
	if !includeDeleted {
		sb.Where(sb.IsNull("deleted_at"))
	}

	query, args := sb.Build()

	var record models.CandidateRecord
	if err := r.db.Conn(ctx).GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get candidate record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get candidate record")
	}

	return &record, nil
}

// List returns a page of records and the total matching count
func (r *Repository) List(ctx context.Context, filter models.CandidateFilter) ([]models.CandidateRecord, int, error) {
	ctx, span := tracing.StartSpan(ctx, "CandidateRepository.List")
	defer span.End()

	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	countSB := database.NewSelectBuilder()
	countSB.Select("COUNT(*)")
	countSB.From(tableName)
	applyFilter(countSB, filter)

	countQuery, countArgs := countSB.Build()

	var total int
	if err := r.db.Conn(ctx).GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count candidate records")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list candidate records")
	}

	sb := database.NewSelectBuilder()
	sb.Select(candidateColumns...)
	sb.From(tableName)
	applyFilter(sb, filter)
	order := []string{"created_at DESC", "id"}
	if name := strings.TrimSpace(filter.Name); name != "" {
		order = append([]string{"similarity(candidate_name, " + sb.Var(name) + ") DESC"}, order...)
	}
	sb.OrderBy(order...)
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()

	records := []models.CandidateRecord{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list candidate records")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list candidate records")
	}

	return records, total, nil
}

// Update applies the non-nil fields of req to an active record
func (r *Repository) Update(ctx context.Context, id string, req models.UpdateCandidateRequest, actor string) (*models.CandidateRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "CandidateRepository.Update")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "candidate not found")
	}

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)

	assignments := []string{
		ub.Assign("updated_at", time.Now().UTC()),
		ub.Assign("updated_by", actorPtr(actor)),
	}
	assign := func(column string, value any) {
		assignments = append(assignments, ub.Assign(column, value))
	}
	if req.RecordType != nil {
		assign("record_type", *req.RecordType)
	}
	if req.CandidateName != nil {
		assign("candidate_name", strings.TrimSpace(*req.CandidateName))
	}
	if req.Age != nil {
		assign("age", *req.Age)
	}
	if req.Gender != nil {
		assign("gender", *req.Gender)
	}
	if req.ConstituencyName != nil {
		assign("constituency_name", strings.TrimSpace(*req.ConstituencyName))
	}
	if req.StateName != nil {
		assign("state_name", strings.TrimSpace(*req.StateName))
	}
	if req.Year != nil {
		assign("year", *req.Year)
	}
	if req.PartyName != nil {
		assign("party_name", strings.TrimSpace(*req.PartyName))
	}
	if req.Education != nil {
		assign("education", *req.Education)
	}
	if req.TotalAssets != nil {
		assign("total_assets", *req.TotalAssets)
	}
	if req.TotalLiabilities != nil {
		assign("total_liabilities", *req.TotalLiabilities)
	}
	if req.CriminalCases != nil {
		assign("criminal_cases", *req.CriminalCases)
	}
	if req.Votes != nil {
		assign("votes", *req.Votes)
	}
	if req.ResultPosition != nil {
		assign("result_position", *req.ResultPosition)
	}

	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id), ub.IsNull("deleted_at"))

	query, args := ub.Build()

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update candidate record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update candidate record")
	}

	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "candidate not found")
	}

	return r.GetByID(ctx, id, false)
}

// Delete soft-deletes an active record
func (r *Repository) Delete(ctx context.Context, id string, actor string) error {
	ctx, span := tracing.StartSpan(ctx, "CandidateRepository.Delete")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return httperror.NewHTTPError(http.StatusNotFound, "candidate not found")
	}

	now := time.Now().UTC()
	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("deleted_at", now),
		ub.Assign("deleted_by", actorPtr(actor)),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id), ub.IsNull("deleted_at"))

	query, args := ub.Build()

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete candidate record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete candidate record")
	}

	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "candidate not found")
	}

	r.logger.WithContext(ctx).WithField("id", id).Info("soft deleted candidate record")
	return nil
}

// HistoryPool returns records in the same constituency whose name is trigram-similar to query.Name
func (r *Repository) HistoryPool(ctx context.Context, query matching.HistoryPoolQuery) ([]models.PoolEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "CandidateRepository.HistoryPool")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(poolColumns...)
	sb.From(tableName)
	sb.Where(
		database.EqualFold(sb, "constituency_name", query.Constituency),
		database.Similar(sb, "candidate_name", query.Name, query.MinSimilarity),
	)
	if !query.IncludeDeleted {
		sb.Where(sb.IsNull("deleted_at"))
	}

	sqlQuery, args := sb.Build()

	entries := []models.PoolEntry{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &entries, sqlQuery, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"constituency": query.Constituency,
		}).Error("failed to load history pool")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load candidate history pool")
	}

	return entries, nil
}

// BulkPool returns up to query.Limit active rows with distinct names, one representative
// row per name. The most recent names are sampled first.
func (r *Repository) BulkPool(ctx context.Context, query matching.BulkPoolQuery) ([]models.PoolEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "CandidateRepository.BulkPool")
	defer span.End()

	sqlQuery, args := bulkPoolQuery(query)

	entries := []models.PoolEntry{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &entries, sqlQuery, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to load bulk match pool")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load candidate pool")
	}

	return entries, nil
}

// bulkPoolQuery picks the newest row per distinct name in a subquery, then
// orders the sample by recency so the limit does not favor early spellings.
func bulkPoolQuery(query matching.BulkPoolQuery) (string, []any) {
	columns := append([]string{"DISTINCT ON (LOWER(TRIM(candidate_name))) id"}, poolColumns[1:]...)

	names := database.NewSelectBuilder()
	names.Select(columns...)
	names.From(tableName)
	names.Where(names.IsNull("deleted_at"))
	if v := nonBlank(query.Constituency); v != "" {
		names.Where(database.Contains(names, "constituency_name", v))
	}
	if v := nonBlank(query.State); v != "" {
		names.Where(database.Contains(names, "state_name", v))
	}
	if v := nonBlank(query.Party); v != "" {
		names.Where(database.Contains(names, "party_name", v))
	}
	if query.Year != nil {
		names.Where(names.Equal("year", *query.Year))
	}
	names.OrderBy("LOWER(TRIM(candidate_name))", "year DESC NULLS LAST", "id")

	sb := database.NewSelectBuilder()
	sb.Select(poolColumns...)
	sb.From(sb.BuilderAs(names, "names"))
	sb.OrderBy("year DESC NULLS LAST", "id")
	if query.Limit > 0 {
		sb.Limit(query.Limit)
	}

	return sb.Build()
}

// UpdateHistory stores a freshly computed history on one record
func (r *Repository) UpdateHistory(ctx context.Context, id string, history models.CandidateHistory) error {
	ctx, span := tracing.StartSpan(ctx, "CandidateRepository.UpdateHistory")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("candidate_history", database.NewJSONB(history)),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()

	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("failed to update candidate history")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update candidate history")
	}

	return nil
}

// ListAfter pages through every record, soft-deleted included, in id order
func (r *Repository) ListAfter(ctx context.Context, afterID string, limit int) ([]models.CandidateRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "CandidateRepository.ListAfter")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(candidateColumns...)
	sb.From(tableName)
	if afterID != "" {
		sb.Where(sb.GreaterThan("id", afterID))
	}
	sb.OrderBy("id")
	sb.Limit(limit)

	query, args := sb.Build()

	records := []models.CandidateRecord{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to page candidate records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to page candidate records")
	}

	return records, nil
}

// BulkUpdateHistories writes many histories with one statement per chunk inside one transaction
func (r *Repository) BulkUpdateHistories(ctx context.Context, updates []models.HistoryUpdate) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "CandidateRepository.BulkUpdateHistories")
	defer span.End()

	if len(updates) == 0 {
		return 0, nil
	}

	updated := 0
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		for start := 0; start < len(updates); start += maxBulkUpdateRows {
			end := min(start+maxBulkUpdateRows, len(updates))
			chunk := updates[start:end]

			keys := ectolinq.Map(chunk, func(u models.HistoryUpdate) any { return u.ID })
			values := ectolinq.Map(chunk, func(u models.HistoryUpdate) any { return database.NewJSONB(u.History) })

			query, args := database.BulkUpdate(tableName, "id", "uuid", "candidate_history", "jsonb", keys, values)
			result, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}
			rows, _ := result.RowsAffected()
			updated += int(rows)
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(updates)).Error("failed to bulk update candidate histories")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update candidate histories")
	}

	return updated, nil
}

func applyFilter(sb *sqlbuilder.SelectBuilder, filter models.CandidateFilter) {
	if !filter.IncludeDeleted {
		sb.Where(sb.IsNull("deleted_at"))
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		sb.Where(sb.Or(
			database.Contains(sb, "candidate_name", name),
			database.Similar(sb, "candidate_name", name, listNameSimilarity),
		))
	}
	if v := strings.TrimSpace(filter.Constituency); v != "" {
		sb.Where(database.Contains(sb, "constituency_name", v))
	}
	if v := strings.TrimSpace(filter.State); v != "" {
		sb.Where(database.Contains(sb, "state_name", v))
	}
	if v := strings.TrimSpace(filter.Party); v != "" {
		sb.Where(database.Contains(sb, "party_name", v))
	}
	if filter.Year != nil {
		sb.Where(sb.Equal("year", *filter.Year))
	}
	if filter.RecordType != "" {
		sb.Where(sb.Equal("record_type", filter.RecordType))
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func nonBlank(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func actorPtr(actor string) *string {
	if actor == "" {
		return nil
	}
	return &actor
}
