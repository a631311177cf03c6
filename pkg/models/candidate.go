package models

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
)

// RecordType identifies the source dataset of a candidate record
type RecordType string

const (
	RecordTypeAffidavit      RecordType = "affidavit"       // MyNeta style self disclosure
	RecordTypeECIResult      RecordType = "eci_result"      // Election Commission result row
	RecordTypeAssemblyResult RecordType = "assembly_result" // State assembly result row
)

// CandidateRecord is one affidavit or election result row.
type CandidateRecord struct {
	ID               string                           `json:"id" db:"id"`
	RecordType       RecordType                       `json:"record_type" db:"record_type"`
	CandidateName    string                           `json:"candidate_name" db:"candidate_name"`
	Age              *float64                         `json:"age,omitempty" db:"age"`
	Gender           *string                          `json:"gender,omitempty" db:"gender"`
	ConstituencyName *string                          `json:"constituency_name,omitempty" db:"constituency_name"`
	StateName        *string                          `json:"state_name,omitempty" db:"state_name"`
	Year             *int                             `json:"year,omitempty" db:"year"`
	PartyName        *string                          `json:"party_name,omitempty" db:"party_name"`
	Education        *string                          `json:"education,omitempty" db:"education"`
	TotalAssets      *float64                         `json:"total_assets,omitempty" db:"total_assets"`
	TotalLiabilities *float64                         `json:"total_liabilities,omitempty" db:"total_liabilities"`
	CriminalCases    *int                             `json:"criminal_cases,omitempty" db:"criminal_cases"`
	Votes            *int64                           `json:"votes,omitempty" db:"votes"`
	ResultPosition   *int                             `json:"result_position,omitempty" db:"result_position"`
	CandidateHistory database.JSONB[CandidateHistory] `json:"candidate_history" db:"candidate_history"`
	CreatedBy        *string                          `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy        *string                          `json:"updated_by,omitempty" db:"updated_by"`
	DeletedBy        *string                          `json:"deleted_by,omitempty" db:"deleted_by"`
	CreatedAt        time.Time                        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time                        `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time                       `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateCandidateRequest is the request body for creating a candidate record
type CreateCandidateRequest struct {
	RecordType       RecordType `json:"record_type" validate:"required,oneof=affidavit eci_result assembly_result"`
	CandidateName    string     `json:"candidate_name" validate:"required,max=255"`
	Age              *float64   `json:"age,omitempty" validate:"omitempty,gte=18,lte=120"`
	Gender           *string    `json:"gender,omitempty" validate:"omitempty,max=32"`
	ConstituencyName *string    `json:"constituency_name,omitempty" validate:"omitempty,max=255"`
	StateName        *string    `json:"state_name,omitempty" validate:"omitempty,max=255"`
	Year             *int       `json:"year,omitempty" validate:"omitempty,gte=1947,lte=2100"`
	PartyName        *string    `json:"party_name,omitempty" validate:"omitempty,max=255"`
	Education        *string    `json:"education,omitempty" validate:"omitempty,max=255"`
	TotalAssets      *float64   `json:"total_assets,omitempty" validate:"omitempty,gte=0"`
	TotalLiabilities *float64   `json:"total_liabilities,omitempty" validate:"omitempty,gte=0"`
	CriminalCases    *int       `json:"criminal_cases,omitempty" validate:"omitempty,gte=0"`
	Votes            *int64     `json:"votes,omitempty" validate:"omitempty,gte=0"`
	ResultPosition   *int       `json:"result_position,omitempty" validate:"omitempty,gte=1"`
}

// UpdateCandidateRequest is a partial update. Nil fields are left untouched.
type UpdateCandidateRequest struct {
	RecordType       *RecordType `json:"record_type,omitempty" validate:"omitempty,oneof=affidavit eci_result assembly_result"`
	CandidateName    *string     `json:"candidate_name,omitempty" validate:"omitempty,min=1,max=255"`
	Age              *float64    `json:"age,omitempty" validate:"omitempty,gte=18,lte=120"`
	Gender           *string     `json:"gender,omitempty" validate:"omitempty,max=32"`
	ConstituencyName *string     `json:"constituency_name,omitempty" validate:"omitempty,max=255"`
	StateName        *string     `json:"state_name,omitempty" validate:"omitempty,max=255"`
	Year             *int        `json:"year,omitempty" validate:"omitempty,gte=1947,lte=2100"`
	PartyName        *string     `json:"party_name,omitempty" validate:"omitempty,max=255"`
	Education        *string     `json:"education,omitempty" validate:"omitempty,max=255"`
	TotalAssets      *float64    `json:"total_assets,omitempty" validate:"omitempty,gte=0"`
	TotalLiabilities *float64    `json:"total_liabilities,omitempty" validate:"omitempty,gte=0"`
	CriminalCases    *int        `json:"criminal_cases,omitempty" validate:"omitempty,gte=0"`
	Votes            *int64      `json:"votes,omitempty" validate:"omitempty,gte=0"`
	ResultPosition   *int        `json:"result_position,omitempty" validate:"omitempty,gte=1"`
}

// AffectsHistory reports whether the update touches a field the history aggregator reads.
func (r UpdateCandidateRequest) AffectsHistory() bool {
	return r.CandidateName != nil || r.Age != nil || r.ConstituencyName != nil || r.Year != nil
}

// IsEmpty reports whether the update sets no field at all.
func (r UpdateCandidateRequest) IsEmpty() bool {
	return r.RecordType == nil && r.CandidateName == nil && r.Age == nil && r.Gender == nil &&
		r.ConstituencyName == nil && r.StateName == nil && r.Year == nil && r.PartyName == nil &&
		r.Education == nil && r.TotalAssets == nil && r.TotalLiabilities == nil &&
		r.CriminalCases == nil && r.Votes == nil && r.ResultPosition == nil
}

// CandidateFilter narrows candidate listings.
type CandidateFilter struct {
	Name           string     `query:"name"`
	Constituency   string     `query:"constituency"`
	State          string     `query:"state"`
	Party          string     `query:"party"`
	Year           *int       `query:"year"`
	RecordType     RecordType `query:"record_type"`
	IncludeDeleted bool       `query:"include_deleted"`
	Page           int        `query:"page"`
	PageSize       int        `query:"page_size"`
}

// CandidateListResponse is the response for listing candidate records
type CandidateListResponse struct {
	Items      []CandidateRecord `json:"items"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}
