package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReporter struct {
	years []*int
}

func (r *fakeReporter) Summary(_ context.Context, year *int) (*models.DashboardSummary, error) {
	r.years = append(r.years, year)
	return &models.DashboardSummary{
		TotalRecords:     12,
		RepeatCandidates: 3,
		ByYear:           []models.CountBucket{{Key: "2019", Count: 12}},
		ByRecordType:     []models.CountBucket{{Key: "affidavit", Count: 12}},
		TopParties:       []models.CountBucket{{Key: "BJP", Count: 5}},
	}, nil
}

func TestSummary(t *testing.T) {
	reporter := &fakeReporter{}
	container := testutil.NewContainer(t)
	testutil.Provide[Reporter](t, container, reporter)

	e := testutil.NewEcho("viewer@example.org", container)
	Register(e.Group("/api/v1/dashboard"), &testutil.Gate{Role: models.RoleViewer})

	rec := testutil.Do(t, e, http.MethodGet, "/api/v1/dashboard/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.DashboardSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 12, summary.TotalRecords)
	assert.Equal(t, 3, summary.RepeatCandidates)

	rec = testutil.Do(t, e, http.MethodGet, "/api/v1/dashboard/summary?year=2019", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.Do(t, e, http.MethodGet, "/api/v1/dashboard/summary?year=1800", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Len(t, reporter.years, 2)
	assert.Nil(t, reporter.years[0])
	require.NotNil(t, reporter.years[1])
	assert.Equal(t, 2019, *reporter.years[1])
}
