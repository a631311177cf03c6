package matching

import (
	"math"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	YearBoost         = 6.0
	ConstituencyBoost = 6.0
	StateBoost        = 4.0
	PartyBoost        = 3.0
	AgeBoost          = 3.0
	// BoostAgeWindow is the age tolerance, in years, for the age boost.
	BoostAgeWindow = 2.0
)

// BoostContext is the query side of a contextual boost.
type BoostContext = models.MatchContext

// Boost returns the additive context bonus for a pool entry. Every agreeing
// field adds its bonus; fields missing on either side add nothing, so the
// result is never negative.
func Boost(entry models.PoolEntry, query *BoostContext) float64 {
	if query == nil {
		return 0
	}

	boost := 0.0
	if entry.Year != nil && query.Year != nil && *entry.Year == *query.Year {
		boost += YearBoost
	}
	if equalFold(entry.ConstituencyName, query.ConstituencyName) {
		boost += ConstituencyBoost
	}
	if equalFold(entry.StateName, query.StateName) {
		boost += StateBoost
	}
	if equalFold(entry.PartyName, query.PartyName) {
		boost += PartyBoost
	}
	if entry.Age != nil && query.Age != nil && math.Abs(*entry.Age-*query.Age) <= BoostAgeWindow {
		boost += AgeBoost
	}

	return boost
}

func equalFold(a, b *string) bool {
	if a == nil || b == nil {
		return false
	}
	x, y := strings.TrimSpace(*a), strings.TrimSpace(*b)
	if x == "" || y == "" {
		return false
	}
	return strings.EqualFold(x, y)
}
