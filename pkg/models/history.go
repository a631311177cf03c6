package models

import "time"

// CandidateHistory is the derived identity history stored on a candidate record.
// It is a materialized view: writes to other records do not refresh it.
type CandidateHistory struct {
	TimesStood int       `json:"times_stood"`
	Years      []int     `json:"years"`
	Aliases    []string  `json:"aliases"`
	ComputedAt time.Time `json:"computed_at,omitempty"`
}

// PoolEntry is the projection of a candidate record used for matching.
type PoolEntry struct {
	ID               string   `json:"id" db:"id"`
	CandidateName    string   `json:"candidate_name" db:"candidate_name"`
	Age              *float64 `json:"age,omitempty" db:"age"`
	ConstituencyName *string  `json:"constituency_name,omitempty" db:"constituency_name"`
	StateName        *string  `json:"state_name,omitempty" db:"state_name"`
	Year             *int     `json:"year,omitempty" db:"year"`
	PartyName        *string  `json:"party_name,omitempty" db:"party_name"`
}

// ToPoolEntry projects a record onto the fields the matcher reads.
func (r CandidateRecord) ToPoolEntry() PoolEntry {
	return PoolEntry{
		ID:               r.ID,
		CandidateName:    r.CandidateName,
		Age:              r.Age,
		ConstituencyName: r.ConstituencyName,
		StateName:        r.StateName,
		Year:             r.Year,
		PartyName:        r.PartyName,
	}
}

// HistoryUpdate pairs a record with its freshly computed history for batched writes.
type HistoryUpdate struct {
	ID      string
	History CandidateHistory
}

// RecomputeResult summarizes a full history recompute.
type RecomputeResult struct {
	Processed int           `json:"processed"`
	Updated   int           `json:"updated"`
	Duration  time.Duration `json:"duration_ns"`
	StartedAt time.Time     `json:"started_at"`
}
