package matching

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	DefaultHistoryScoreThreshold = 80.0
	DefaultHistoryAgeWindow      = 5.0
	DefaultPoolMinSimilarity     = 0.4
)

// HistoryPoolQuery selects the records that may belong to the same candidate as a source record.
type HistoryPoolQuery struct {
	Constituency   string
	Name           string
	MinSimilarity  float64
	IncludeDeleted bool
}

// BulkPoolQuery selects the distinct-name sample searched by BulkMatch.
type BulkPoolQuery struct {
	Constituency *string
	State        *string
	Party        *string
	Year         *int
	Limit        int
}

// HistoryPoolSource fetches history candidate pools.
type HistoryPoolSource interface {
	HistoryPool(ctx context.Context, query HistoryPoolQuery) ([]models.PoolEntry, error)
}

// BulkPoolSource fetches bulk match samples.
type BulkPoolSource interface {
	BulkPool(ctx context.Context, query BulkPoolQuery) ([]models.PoolEntry, error)
}

// PoolSource is the persistence capability the matching core needs.
type PoolSource interface {
	HistoryPoolSource
	BulkPoolSource
}

type HistoryConfig struct {
	ScoreThreshold    float64
	AgeWindow         float64
	PoolMinSimilarity float64
	// IncludeSelf adds the source's own name and year whether or not the pool contains it.
	IncludeSelf bool
}

func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		ScoreThreshold:    DefaultHistoryScoreThreshold,
		AgeWindow:         DefaultHistoryAgeWindow,
		PoolMinSimilarity: DefaultPoolMinSimilarity,
		IncludeSelf:       true,
	}
}

// ComputeHistory derives the alias set and distinct election years of the
// candidate behind source. Pool entries join the history when their name
// scores at least cfg.ScoreThreshold against the source name and, if both
// ages are known, the ages differ by at most cfg.AgeWindow.
//
// Store errors are returned unchanged. ComputedAt is left for the caller to stamp.
func ComputeHistory(ctx context.Context, pool HistoryPoolSource, source models.CandidateRecord, cfg HistoryConfig) (models.CandidateHistory, error) {
	aliases := map[string]struct{}{}
	years := map[int]struct{}{}

	if cfg.IncludeSelf {
		addEntry(aliases, years, source.CandidateName, source.Year)
	}

	constituency := ""
	if source.ConstituencyName != nil {
		constituency = strings.TrimSpace(*source.ConstituencyName)
	}

	src := Prepare(source.CandidateName)
	if constituency != "" && src.Normalized != "" {
		entries, err := pool.HistoryPool(ctx, HistoryPoolQuery{
			Constituency:   constituency,
			Name:           strings.TrimSpace(source.CandidateName),
			MinSimilarity:  cfg.PoolMinSimilarity,
			IncludeDeleted: true,
		})
		if err != nil {
			return models.CandidateHistory{}, err
		}

		scorer := NewScorer()
		for _, entry := range entries {
			if !agesCompatible(source.Age, entry.Age, cfg.AgeWindow) {
				continue
			}
			if scorer.ScorePrepared(src, Prepare(entry.CandidateName)) < cfg.ScoreThreshold {
				continue
			}
			addEntry(aliases, years, entry.CandidateName, entry.Year)
		}
	}

	return buildHistory(aliases, years), nil
}

// agesCompatible passes when either age is unknown.
func agesCompatible(a, b *float64, window float64) bool {
	if a == nil || b == nil {
		return true
	}
	return math.Abs(*a-*b) <= window
}

func addEntry(aliases map[string]struct{}, years map[int]struct{}, name string, year *int) {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		aliases[trimmed] = struct{}{}
	}
	if year != nil {
		years[*year] = struct{}{}
	}
}

func buildHistory(aliases map[string]struct{}, years map[int]struct{}) models.CandidateHistory {
	history := models.CandidateHistory{
		Years:   make([]int, 0, len(years)),
		Aliases: make([]string, 0, len(aliases)),
	}
	for year := range years {
		history.Years = append(history.Years, year)
	}
	for alias := range aliases {
		history.Aliases = append(history.Aliases, alias)
	}
	sort.Ints(history.Years)
	sort.Strings(history.Aliases)
	history.TimesStood = len(history.Years)

	return history
}
