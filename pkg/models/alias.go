package models

import "time"

// CandidateAlias maps a normalized alias onto the canonical spelling of a candidate name.
type CandidateAlias struct {
	Alias         string    `json:"alias" db:"alias"`
	CanonicalName string    `json:"canonical_name" db:"canonical_name"`
	CreatedBy     *string   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// UpsertAliasRequest is the request body for creating or replacing an alias
type UpsertAliasRequest struct {
	Alias         string `json:"alias" validate:"required,max=255"`
	CanonicalName string `json:"canonical_name" validate:"required,max=255"`
}

// AliasListResponse is the response for listing aliases
type AliasListResponse struct {
	Items      []CandidateAlias `json:"items"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}
