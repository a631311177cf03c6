package match

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMatcher struct {
	requests []models.BulkMatchRequest
}

func (m *fakeMatcher) BulkMatch(_ context.Context, req models.BulkMatchRequest) (models.BulkMatchResponse, error) {
	m.requests = append(m.requests, req)
	if len(req.Names) == 0 {
		return models.BulkMatchResponse{}, &matching.ValidationError{Field: "names", Message: "at least one name is required"}
	}

	results := make(map[string]models.NameMatches, len(req.Names))
	for _, name := range req.Names {
		results[name] = models.NameMatches{Matches: []models.MatchCandidate{{CandidateName: name, Score: 100}}}
	}
	return models.BulkMatchResponse{Results: results, Threshold: 75, SampleLimit: 2000, Sampled: 1}, nil
}

func setup(t *testing.T, role models.Role, throttles ...echo.MiddlewareFunc) (*fakeMatcher, func(t *testing.T, body string) (int, []byte)) {
	matcher := &fakeMatcher{}
	container := testutil.NewContainer(t)
	testutil.Provide[Matcher](t, container, matcher)

	e := testutil.NewEcho("viewer@example.org", container)
	Register(e.Group("/api/v1/match"), &testutil.Gate{Role: role}, throttles...)

	return matcher, func(t *testing.T, body string) (int, []byte) {
		rec := testutil.Do(t, e, http.MethodPost, "/api/v1/match/bulk", body)
		return rec.Code, rec.Body.Bytes()
	}
}

func TestBulk(t *testing.T) {
	t.Run("passes the request through", func(t *testing.T) {
		matcher, do := setup(t, models.RoleViewer)

		code, body := do(t, `{"names":["Lalu Prasad"],"threshold":80,"sample_limit":500,"limit":3,"context":{"constituency_name":"Saran","year":2014}}`)
		require.Equal(t, http.StatusOK, code, string(body))

		require.Len(t, matcher.requests, 1)
		req := matcher.requests[0]
		assert.Equal(t, []string{"Lalu Prasad"}, req.Names)
		assert.Equal(t, 80.0, *req.Threshold)
		assert.Equal(t, 500, *req.SampleLimit)
		assert.Equal(t, 3, req.Limit)
		assert.Equal(t, "Saran", *req.Context.ConstituencyName)
		assert.Equal(t, 2014, *req.Context.Year)

		var resp models.BulkMatchResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, 1, resp.Sampled)
		assert.Len(t, resp.Results["Lalu Prasad"].Matches, 1)
	})

	t.Run("empty names is a 400", func(t *testing.T) {
		_, do := setup(t, models.RoleViewer)

		code, _ := do(t, `{"names":[]}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("negative limit is a 400", func(t *testing.T) {
		matcher, do := setup(t, models.RoleViewer)

		code, _ := do(t, `{"names":["x"],"limit":-1}`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Empty(t, matcher.requests)
	})

	t.Run("needs viewer", func(t *testing.T) {
		_, do := setup(t, "")

		code, _ := do(t, `{"names":["x"]}`)
		assert.Equal(t, http.StatusForbidden, code)
	})
}

func TestBulk_Throttled(t *testing.T) {
	calls := 0
	throttle := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			calls++
			if calls > 1 {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
	matcher, do := setup(t, models.RoleViewer, throttle)

	code, _ := do(t, `{"names":["x"]}`)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, `{"names":["x"]}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Len(t, matcher.requests, 1)

	_, denied := setup(t, "", throttle)
	code, _ = denied(t, `{"names":["x"]}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, 2, calls, "role check runs before the throttle")
}
