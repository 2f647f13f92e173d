package dto

import "github.com/biodivhub/biodiv-api/internal/models"

// SearchRegionsRequest looks up regions by a list of name/source-layer pairs.
type SearchRegionsRequest struct {
	Details []models.RegionDetail `json:"details" binding:"required,min=1,dive"`
}

// ReplaceRegionsRequest fully replaces the region associations of a project or
// survey with the given region ids.
type ReplaceRegionsRequest struct {
	RegionIDs []int64 `json:"regionIds" binding:"required"`
}

// CreateFundingSourceRequest creates a funding source.
type CreateFundingSourceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// UpdateFundingSourceRequest updates a funding source; RevisionCount must match
// the stored row or the write is rejected as stale.
type UpdateFundingSourceRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	RevisionCount int    `json:"revisionCount"`
}
