package models

import "time"

// FundingSource is an agency or program funding projects. Updates are guarded
// by the revision_count optimistic-concurrency trigger.
type FundingSource struct {
	ID            int64      `db:"funding_source_id" json:"funding_source_id"`
	Name          string     `db:"name" json:"name"`
	Description   string     `db:"description" json:"description"`
	StartDate     *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate       *time.Time `db:"end_date" json:"end_date,omitempty"`
	RevisionCount int        `db:"revision_count" json:"revision_count"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
