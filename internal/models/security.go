package models

// SecurityRuleCategory separates the two disjoint rule sub-kinds held in the
// search index.
type SecurityRuleCategory string

const (
	SecurityCategoryPersecution SecurityRuleCategory = "Persecution or Harm"
	SecurityCategoryProprietary SecurityRuleCategory = "Proprietary"
)

// SecurityRule is an externally sourced classification reason. Rules are read
// from the search index and never written by this application. Persecution
// rules carry a taxon code; proprietary rules carry name/description only.
type SecurityRule struct {
	SecurityReasonID  int64                `json:"security_reason_id"`
	Category          SecurityRuleCategory `json:"category"`
	ReasonTitle       string               `json:"reasonTitle"`
	ReasonDescription string               `json:"reasonDescription"`
	ExpirationDate    *string              `json:"expirationDate"`
	TaxonCode         string               `json:"taxonCode,omitempty"`
}

// AppliedSecurityRule is one persisted attachment-to-rule association row.
type AppliedSecurityRule struct {
	SecurityReasonID int64  `db:"security_reason_id" json:"security_reason_id"`
	AttachmentID     int64  `db:"attachment_id" json:"attachment_id"`
	CreatedBy        string `db:"created_by" json:"created_by"`
}
