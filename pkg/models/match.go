package models

// MatchContext is the optional shared context of a bulk match request.
type MatchContext struct {
	ConstituencyName *string  `json:"constituency_name,omitempty"`
	StateName        *string  `json:"state_name,omitempty"`
	Year             *int     `json:"year,omitempty"`
	PartyName        *string  `json:"party_name,omitempty"`
	Age              *float64 `json:"age,omitempty"`
}

// BulkMatchRequest is the request body for a bulk name search.
// Threshold and SampleLimit are pointers so an explicit 0 can be told apart from "use the default".
type BulkMatchRequest struct {
	Names       []string      `json:"names"`
	Threshold   *float64      `json:"threshold,omitempty"`
	SampleLimit *int          `json:"sample_limit,omitempty"`
	Limit       int           `json:"limit,omitempty" validate:"gte=0"`
	Context     *MatchContext `json:"context,omitempty"`
}

// MatchCandidate is a ranked match returned by the bulk matcher. It is never persisted.
type MatchCandidate struct {
	CandidateName    string  `json:"candidate_name"`
	Score            float64 `json:"score"`
	Year             *int    `json:"year,omitempty"`
	ConstituencyName *string `json:"constituency_name,omitempty"`
	StateName        *string `json:"state_name,omitempty"`
	PartyName        *string `json:"party_name,omitempty"`
	CanonicalName    *string `json:"canonical_name,omitempty"`
}

// NameMatches holds the ranked matches for one input name.
type NameMatches struct {
	Matches []MatchCandidate `json:"matches"`
}

// BulkMatchResponse maps every input name to its matches. Sampled is the
// number of pool rows searched; results outside the sample are not seen.
type BulkMatchResponse struct {
	Results     map[string]NameMatches `json:"results"`
	Threshold   float64                `json:"threshold"`
	SampleLimit int                    `json:"sample_limit"`
	Sampled     int                    `json:"sampled"`
}
