package models

import "time"

// AttachmentType is the closed discriminator selecting the underlying
// attachment table. Report attachments live in their own table; everything
// else routes to the generic survey attachment table.
type AttachmentType string

const (
	AttachmentTypeReport AttachmentType = "Report"
	AttachmentTypeOther  AttachmentType = "Other"
)

// ParseAttachmentType resolves a request-supplied type string into the closed
// enum. Unknown values are rejected rather than defaulted, so a typo cannot
// silently route to the wrong table.
func ParseAttachmentType(raw string) (AttachmentType, bool) {
	switch AttachmentType(raw) {
	case AttachmentTypeReport:
		return AttachmentTypeReport, true
	case AttachmentTypeOther:
		return AttachmentTypeOther, true
	default:
		return "", false
	}
}

// SecurityState describes where an attachment sits in the review workflow.
type SecurityState string

const (
	// SecurityStateAwaitingReview is the initial state after upload: no
	// classification decision has been recorded yet.
	SecurityStateAwaitingReview SecurityState = "AWAITING_REVIEW"
	// SecurityStateSecured means one or more security rules are applied.
	SecurityStateSecured SecurityState = "SECURED"
	// SecurityStateUnsecured is an explicit zero-rule decision, distinct from
	// never having been reviewed.
	SecurityStateUnsecured SecurityState = "UNSECURED"
)

// SurveyAttachment is a file attached to a survey, either a generic document
// or a report (stored in a separate table with report metadata).
type SurveyAttachment struct {
	ID              int64          `db:"survey_attachment_id" json:"id"`
	SurveyID        int64          `db:"survey_id" json:"survey_id"`
	FileName        string         `db:"file_name" json:"file_name"`
	FileKey         string         `db:"file_key" json:"-"`
	FileType        AttachmentType `db:"file_type" json:"file_type"`
	FileSize        int64          `db:"file_size" json:"file_size"`
	Title           *string        `db:"title" json:"title,omitempty"`
	Description     *string        `db:"description" json:"description,omitempty"`
	ReviewTimestamp *time.Time     `db:"security_review_timestamp" json:"security_review_timestamp,omitempty"`
	ReviewedBy      *string        `db:"security_reviewed_by" json:"security_reviewed_by,omitempty"`
	RevisionCount   int            `db:"revision_count" json:"revision_count"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// SecurityStateOf derives the workflow state from the review stamp and the
// number of applied rules.
func SecurityStateOf(reviewTimestamp *time.Time, appliedRuleCount int) SecurityState {
	if reviewTimestamp == nil {
		return SecurityStateAwaitingReview
	}
	if appliedRuleCount > 0 {
		return SecurityStateSecured
	}
	return SecurityStateUnsecured
}

// AttachmentSecurityClassification is the current decision for one attachment:
// the applied rule ids plus the audit stamp of the reviewing user.
type AttachmentSecurityClassification struct {
	AttachmentID    int64          `json:"attachment_id"`
	AttachmentType  AttachmentType `json:"attachment_type"`
	State           SecurityState  `json:"state"`
	AppliedRuleIDs  []int64        `json:"applied_rule_ids"`
	ReviewTimestamp *time.Time     `json:"review_timestamp,omitempty"`
	ReviewedBy      *string        `json:"reviewed_by,omitempty"`
}
