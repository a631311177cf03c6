package models

// CountBucket is one row of a grouped count.
type CountBucket struct {
	Key   string `json:"key" db:"key"`
	Count int    `json:"count" db:"count"`
}

// DashboardSummary is the grouped reporting view over candidate records.
type DashboardSummary struct {
	TotalRecords     int           `json:"total_records"`
	RepeatCandidates int           `json:"repeat_candidates"`
	ByYear           []CountBucket `json:"by_year"`
	ByRecordType     []CountBucket `json:"by_record_type"`
	TopParties       []CountBucket `json:"top_parties"`
}
