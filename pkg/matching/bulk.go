package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	DefaultBulkThreshold  = 75.0
	DefaultSampleLimit    = 2000
	DefaultMaxSampleLimit = 20000
	DefaultMaxBulkNames   = 500
	minSampleLimit        = 1
)

// AliasResolver maps normalized candidate names to their canonical names.
// Names without an alias are absent from the result.
type AliasResolver interface {
	CanonicalNames(ctx context.Context, normalized []string) (map[string]string, error)
}

type BulkConfig struct {
	DefaultThreshold   float64
	DefaultSampleLimit int
	MaxSampleLimit     int
	// MaxNames caps the input names per request; 0 disables the cap.
	MaxNames int
}

func DefaultBulkConfig() BulkConfig {
	return BulkConfig{
		DefaultThreshold:   DefaultBulkThreshold,
		DefaultSampleLimit: DefaultSampleLimit,
		MaxSampleLimit:     DefaultMaxSampleLimit,
		MaxNames:           DefaultMaxBulkNames,
	}
}

// ResolveThreshold applies the default and clamps to [0,100].
func (c BulkConfig) ResolveThreshold(requested *float64) float64 {
	if requested == nil {
		return Clamp(c.DefaultThreshold)
	}
	return Clamp(*requested)
}

// ResolveSampleLimit applies the default and clamps to [1, MaxSampleLimit].
func (c BulkConfig) ResolveSampleLimit(requested *int) int {
	limit := c.DefaultSampleLimit
	if requested != nil {
		limit = *requested
	}
	if limit < minSampleLimit {
		limit = minSampleLimit
	}
	if c.MaxSampleLimit > 0 && limit > c.MaxSampleLimit {
		limit = c.MaxSampleLimit
	}
	return limit
}

// Validate rejects requests that cannot be searched.
func (c BulkConfig) Validate(req models.BulkMatchRequest) error {
	if len(req.Names) == 0 {
		return &ValidationError{Field: "names", Message: "at least one name is required"}
	}
	if c.MaxNames > 0 && len(req.Names) > c.MaxNames {
		return &ValidationError{Field: "names", Message: fmt.Sprintf("at most %d names are allowed, got %d", c.MaxNames, len(req.Names))}
	}
	if req.Limit < 0 {
		return &ValidationError{Field: "limit", Message: "must not be negative"}
	}
	return nil
}

// BulkMatch ranks a bounded sample of distinct candidate names against every
// input name. Each match scores clamp(Score + Boost) and must reach the
// threshold. The search is approximate: rows outside the sample are never seen,
// which the response reports through Sampled and SampleLimit.
func BulkMatch(ctx context.Context, pool BulkPoolSource, aliases AliasResolver, req models.BulkMatchRequest, cfg BulkConfig) (models.BulkMatchResponse, error) {
	if err := cfg.Validate(req); err != nil {
		return models.BulkMatchResponse{}, err
	}

	threshold := cfg.ResolveThreshold(req.Threshold)
	sampleLimit := cfg.ResolveSampleLimit(req.SampleLimit)

	query := BulkPoolQuery{Limit: sampleLimit}
	if req.Context != nil {
		query.Constituency = req.Context.ConstituencyName
		query.State = req.Context.StateName
		query.Party = req.Context.PartyName
		query.Year = req.Context.Year
	}

	entries, err := pool.BulkPool(ctx, query)
	if err != nil {
		return models.BulkMatchResponse{}, err
	}

	prepared := make([]Prepared, len(entries))
	boosts := make([]float64, len(entries))
	for i, entry := range entries {
		prepared[i] = Prepare(entry.CandidateName)
		boosts[i] = Boost(entry, req.Context)
	}

	scorer := NewScorer()
	type scored struct {
		index int
		score float64
	}
	perName := make(map[string][]scored, len(req.Names))
	matchedNames := map[string]struct{}{}

	for _, name := range req.Names {
		if _, seen := perName[name]; seen {
			continue
		}

		input := Prepare(name)
		hits := []scored{}
		if input.Normalized != "" {
			for i := range entries {
				base := scorer.ScorePrepared(input, prepared[i])
				score := Clamp(base + boosts[i])
				if score >= threshold {
					hits = append(hits, scored{index: i, score: score})
				}
			}
		}

		sort.SliceStable(hits, func(a, b int) bool {
			if hits[a].score != hits[b].score {
				return hits[a].score > hits[b].score
			}
			return entries[hits[a].index].CandidateName < entries[hits[b].index].CandidateName
		})
		if req.Limit > 0 && len(hits) > req.Limit {
			hits = hits[:req.Limit]
		}

		for _, hit := range hits {
			if normalized := prepared[hit.index].Normalized; normalized != "" {
				matchedNames[normalized] = struct{}{}
			}
		}
		perName[name] = hits
	}

	canonical := map[string]string{}
	if aliases != nil && len(matchedNames) > 0 {
		keys := make([]string, 0, len(matchedNames))
		for key := range matchedNames {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		canonical, err = aliases.CanonicalNames(ctx, keys)
		if err != nil {
			return models.BulkMatchResponse{}, err
		}
	}

	resp := models.BulkMatchResponse{
		Results:     make(map[string]models.NameMatches, len(perName)),
		Threshold:   threshold,
		SampleLimit: sampleLimit,
		Sampled:     len(entries),
	}
	for name, hits := range perName {
		matches := make([]models.MatchCandidate, 0, len(hits))
		for _, hit := range hits {
			entry := entries[hit.index]
			match := models.MatchCandidate{
				CandidateName:    entry.CandidateName,
				Score:            hit.score,
				Year:             entry.Year,
				ConstituencyName: entry.ConstituencyName,
				StateName:        entry.StateName,
				PartyName:        entry.PartyName,
			}
			if name, ok := canonical[prepared[hit.index].Normalized]; ok {
				match.CanonicalName = &name
			}
			matches = append(matches, match)
		}
		resp.Results[name] = models.NameMatches{Matches: matches}
	}

	return resp, nil
}
