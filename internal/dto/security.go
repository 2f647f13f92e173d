package dto

import "github.com/biodivhub/biodiv-api/internal/models"

// ApplySecurityRequest marks an attachment secure with the given rule ids.
// AttachmentType selects the underlying table and must resolve to a known
// variant.
type ApplySecurityRequest struct {
	AttachmentType    string  `json:"attachmentType" binding:"required"`
	SecurityReasonIDs []int64 `json:"securityReasonIds" binding:"required,min=1"`
}

// ApplySecurityResponse reports how many attachment rows the decision touched.
type ApplySecurityResponse struct {
	RowCount int64 `json:"rowCount"`
}

// RemoveSecurityRequest clears all security reasons from an attachment,
// recording an explicit unsecured decision.
type RemoveSecurityRequest struct {
	AttachmentType string `json:"attachmentType" binding:"required"`
}

// SecurityReasonsResponse lists the rules applied to an attachment with
// metadata resolved from the search index.
type SecurityReasonsResponse struct {
	State   models.SecurityState  `json:"state"`
	Reasons []models.SecurityRule `json:"reasons"`
}
