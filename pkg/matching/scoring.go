package matching

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"

	"github.com/Ramsey-B/fern/pkg/normalizers"
)

const (
	// PhoneticBonus is added to the base score of phonetically linked names.
	PhoneticBonus = 6.0
	MaxScore      = 100.0
	MinScore      = 0.0
)

// Prepared is a name with everything the scorer needs precomputed, so pool
// entries are normalized and encoded once per request instead of once per comparison.
type Prepared struct {
	Original   string
	Normalized string
	Sorted     string
	Keys       Keys
}

// Prepare normalizes a raw name and computes its token sorted form and phonetic keys.
func Prepare(raw string) Prepared {
	normalized := normalizers.NormalizeCandidateName(raw)
	tokens := strings.Fields(normalized)
	sort.Strings(tokens)

	return Prepared{
		Original:   raw,
		Normalized: normalized,
		Sorted:     strings.Join(tokens, " "),
		Keys:       KeysFor(normalized),
	}
}

// Scorer computes name similarity on a 0..100 scale
type Scorer struct {
	phoneticBonus float64
}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{phoneticBonus: PhoneticBonus}
}

// Ratio is the indel similarity of two strings: 100 * 2*LCS / (len(a)+len(b)), in runes.
// Two empty strings score 0.
func (s *Scorer) Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 || a == "" || b == "" {
		return 0
	}
	if a == b {
		return MaxScore
	}
	return MaxScore * float64(2*edlib.LCS(a, b)) / float64(total)
}

// Score compares two names after normalizing them. The base token sort ratio
// gets the phonetic bonus when the names sound alike, then is clamped to [0,100].
func (s *Scorer) Score(a, b string) float64 {
	return s.ScorePrepared(Prepare(a), Prepare(b))
}

// ScorePrepared is Score over precomputed names.
func (s *Scorer) ScorePrepared(a, b Prepared) float64 {
	if a.Normalized == "" || b.Normalized == "" {
		return MinScore
	}

	score := s.Ratio(a.Sorted, b.Sorted)
	if PhoneticallyLinked(a.Keys, b.Keys) {
		score += s.phoneticBonus
	}

	return Clamp(score)
}

// Clamp bounds a score to [0,100].
func Clamp(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
