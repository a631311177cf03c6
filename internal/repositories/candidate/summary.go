package candidate

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const topPartiesLimit = 10

// Summary returns grouped counts over active records, optionally for one year
func (r *Repository) Summary(ctx context.Context, year *int) (*models.DashboardSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "CandidateRepository.Summary")
	defer span.End()

	summary := &models.DashboardSummary{}
	scope := func(sb *sqlbuilder.SelectBuilder) {
		sb.From(tableName)
		sb.Where(sb.IsNull("deleted_at"))
		if year != nil {
			sb.Where(sb.Equal("year", *year))
		}
	}

	total := database.NewSelectBuilder()
	total.Select("COUNT(*)")
	scope(total)
	if err := r.count(ctx, total, &summary.TotalRecords); err != nil {
		return nil, err
	}

	repeats := database.NewSelectBuilder()
	repeats.Select("COUNT(*)")
	scope(repeats)
	repeats.Where("COALESCE((candidate_history->>'times_stood')::int, 0) > 1")
	if err := r.count(ctx, repeats, &summary.RepeatCandidates); err != nil {
		return nil, err
	}

	byYear := database.NewSelectBuilder()
	byYear.Select("COALESCE(year::text, 'unknown') AS key", "COUNT(*) AS count")
	scope(byYear)
	byYear.GroupBy("1")
	byYear.OrderBy("1")
	if err := r.buckets(ctx, byYear, &summary.ByYear); err != nil {
		return nil, err
	}

	byType := database.NewSelectBuilder()
	byType.Select("record_type AS key", "COUNT(*) AS count")
	scope(byType)
	byType.GroupBy("1")
	byType.OrderBy("1")
	if err := r.buckets(ctx, byType, &summary.ByRecordType); err != nil {
		return nil, err
	}

	parties := database.NewSelectBuilder()
	parties.Select("COALESCE(NULLIF(TRIM(party_name), ''), 'unknown') AS key", "COUNT(*) AS count")
	scope(parties)
	parties.GroupBy("1")
	parties.OrderBy("2 DESC", "1")
	parties.Limit(topPartiesLimit)
	if err := r.buckets(ctx, parties, &summary.TopParties); err != nil {
		return nil, err
	}

	return summary, nil
}

func (r *Repository) count(ctx context.Context, sb *sqlbuilder.SelectBuilder, dest *int) error {
	query, args := sb.Build()
	if err := r.db.Conn(ctx).GetContext(ctx, dest, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count candidate records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to load dashboard summary")
	}
	return nil
}

func (r *Repository) buckets(ctx context.Context, sb *sqlbuilder.SelectBuilder, dest *[]models.CountBucket) error {
	query, args := sb.Build()
	*dest = []models.CountBucket{}
	if err := r.db.Conn(ctx).SelectContext(ctx, dest, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to group candidate records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to load dashboard summary")
	}
	return nil
}
