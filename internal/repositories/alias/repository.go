package alias

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	gocache "github.com/patrickmn/go-cache"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	tableName       = "candidate_aliases"
	defaultPageSize = 20
	maxPageSize     = 100
)

// AliasRepository defines alias table data access
type AliasRepository interface {
	List(ctx context.Context, page, pageSize int) ([]models.CandidateAlias, int, error)
	Upsert(ctx context.Context, req models.UpsertAliasRequest, actor string) (*models.CandidateAlias, error)
	Delete(ctx context.Context, alias string) error
	CanonicalNames(ctx context.Context, normalized []string) (map[string]string, error)
}

// Repository implements AliasRepository. Canonical lookups are cached in
// process; an empty cached value records that a name has no alias.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
	cache  *gocache.Cache
}

// NewRepository creates a new alias repository. A zero ttl disables the lookup cache.
func NewRepository(db database.DB, logger ectologger.Logger, ttl time.Duration) *Repository {
	r := &Repository{
		db:     db,
		logger: logger,
	}
	if ttl > 0 {
		r.cache = gocache.New(ttl, 2*ttl)
	}
	return r
}

func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.CandidateAlias, int, error) {
	ctx, span := tracing.StartSpan(ctx, "AliasRepository.List")
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
	countQuery, countArgs := countSB.Build()

	var total int
	if err := r.db.Conn(ctx).GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count aliases")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list aliases")
	}

	sb := database.NewSelectBuilder()
	sb.Select("alias", "canonical_name", "created_by", "created_at", "updated_at")
	sb.From(tableName)
	sb.OrderBy("alias")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()

	aliases := []models.CandidateAlias{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &aliases, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list aliases")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list aliases")
	}

	return aliases, total, nil
}

// Upsert creates or replaces the canonical name of an alias. The alias is stored normalized.
func (r *Repository) Upsert(ctx context.Context, req models.UpsertAliasRequest, actor string) (*models.CandidateAlias, error) {
	ctx, span := tracing.StartSpan(ctx, "AliasRepository.Upsert")
	defer span.End()

	key := normalizers.NormalizeCandidateName(req.Alias)
	if key == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "alias must contain at least one letter or digit")
	}

	now := time.Now().UTC()
	alias := &models.CandidateAlias{
		Alias:         key,
		CanonicalName: normalizers.CollapseWhitespace(req.CanonicalName),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if actor != "" {
		alias.CreatedBy = &actor
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName)
	ib.Cols("alias", "canonical_name", "created_by", "created_at", "updated_at")
	ib.Values(alias.Alias, alias.CanonicalName, alias.CreatedBy, alias.CreatedAt, alias.UpdatedAt)
	ib.SQL("ON CONFLICT (alias) DO UPDATE SET canonical_name = EXCLUDED.canonical_name, updated_at = EXCLUDED.updated_at")
	ib.SQL("RETURNING created_at, created_by")

	query, args := ib.Build()

	var returned struct {
		CreatedAt time.Time `db:"created_at"`
		CreatedBy *string   `db:"created_by"`
	}
	if err := r.db.Conn(ctx).GetContext(ctx, &returned, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to upsert alias")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to save alias")
	}
	alias.CreatedAt = returned.CreatedAt
	alias.CreatedBy = returned.CreatedBy

	if r.cache != nil {
		r.cache.Set(key, alias.CanonicalName, gocache.DefaultExpiration)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"alias":          key,
		"canonical_name": alias.CanonicalName,
	}).Info("saved candidate alias")

	return alias, nil
}

func (r *Repository) Delete(ctx context.Context, alias string) error {
	ctx, span := tracing.StartSpan(ctx, "AliasRepository.Delete")
	defer span.End()

	key := normalizers.NormalizeCandidateName(alias)

	db := database.NewDeleteBuilder()
	db.DeleteFrom(tableName)
	db.Where(db.Equal("alias", key))

	query, args := db.Build()

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete alias")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete alias")
	}

	if r.cache != nil {
		r.cache.Delete(key)
	}

	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "alias not found")
	}

	return nil
}

// CanonicalNames resolves normalized names to canonical names, hitting the table only for cache misses.
func (r *Repository) CanonicalNames(ctx context.Context, normalized []string) (map[string]string, error) {
	ctx, span := tracing.StartSpan(ctx, "AliasRepository.CanonicalNames")
	defer span.End()

	resolved := make(map[string]string, len(normalized))
	missing := make([]any, 0, len(normalized))
	for _, name := range normalized {
		if r.cache != nil {
			if cached, ok := r.cache.Get(name); ok {
				if canonical := cached.(string); canonical != "" {
					resolved[name] = canonical
				}
				continue
			}
		}
		missing = append(missing, name)
	}

	if len(missing) == 0 {
		return resolved, nil
	}

	sb := database.NewSelectBuilder()
	sb.Select("alias", "canonical_name")
	sb.From(tableName)
	sb.Where(sb.In("alias", missing...))

	query, args := sb.Build()

	rows := []models.CandidateAlias{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to resolve aliases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve aliases")
	}

	found := make(map[string]string, len(rows))
	for _, row := range rows {
		found[row.Alias] = row.CanonicalName
		resolved[row.Alias] = row.CanonicalName
	}

	if r.cache != nil {
		for _, name := range missing {
			key := name.(string)
			r.cache.Set(key, found[key], gocache.DefaultExpiration)
		}
	}

	return resolved, nil
}
