package models

import "time"

// SubmissionStatusType enumerates the lifecycle states an occurrence
// submission passes through.
type SubmissionStatusType string

const (
	SubmissionStatusSubmitted         SubmissionStatusType = "Submitted"
	SubmissionStatusTemplateValidated SubmissionStatusType = "Template Validated"
	SubmissionStatusDarwinCoreValid   SubmissionStatusType = "Darwin Core Validated"
	SubmissionStatusRejected          SubmissionStatusType = "Rejected"
	SubmissionStatusSystemError       SubmissionStatusType = "System Error"
	SubmissionStatusFailedValidation  SubmissionStatusType = "Failed to Validate"
	SubmissionStatusFailedUpdate      SubmissionStatusType = "Failed to Update"
)

// SubmissionMessageType enumerates message classes attached to a status.
type SubmissionMessageType string

const (
	SubmissionMessageError   SubmissionMessageType = "Error"
	SubmissionMessageWarning SubmissionMessageType = "Warning"
	SubmissionMessageNotice  SubmissionMessageType = "Notice"
)

// Submission is one ingestion event of occurrence or summary data for a survey.
type Submission struct {
	ID        int64     `db:"occurrence_submission_id" json:"id"`
	SurveyID  int64     `db:"survey_id" json:"survey_id"`
	Source    string    `db:"source" json:"source"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileKey   string    `db:"file_key" json:"-"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SubmissionStatus is one append-only lifecycle record for a submission. The
// latest row by creation time is authoritative for current-state queries.
type SubmissionStatus struct {
	ID           int64                `db:"submission_status_id" json:"submission_status_id"`
	SubmissionID int64                `db:"occurrence_submission_id" json:"occurrence_submission_id"`
	StatusType   SubmissionStatusType `db:"status_type" json:"status_type"`
	CreatedAt    time.Time            `db:"created_at" json:"created_at"`
}

// SubmissionMessage is a detail record attached to one status entry, capturing
// a single validation or processing finding.
type SubmissionMessage struct {
	ID          int64                 `db:"submission_message_id" json:"submission_message_id"`
	StatusID    int64                 `db:"submission_status_id" json:"submission_status_id"`
	MessageType SubmissionMessageType `db:"message_type" json:"message_type"`
	Message     string                `db:"message" json:"message"`
	ErrorCode   string                `db:"error_code" json:"error_code"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
}

// SubmissionMessageDescriptor describes one message to record under a status.
type SubmissionMessageDescriptor struct {
	Type      SubmissionMessageType `json:"type"`
	Message   string                `json:"message"`
	ErrorCode string                `json:"error_code"`
}

// SubmissionError is a structured processing failure: one status umbrella with
// any number of sibling findings beneath it.
type SubmissionError struct {
	Status   SubmissionStatusType          `json:"status"`
	Messages []SubmissionMessageDescriptor `json:"messages"`
}

// SummarySubmission is the lightweight `{id, fileName}` shape returned by the
// summary submission lookup.
type SummarySubmission struct {
	ID       int64  `db:"survey_summary_submission_id" json:"id"`
	FileName string `db:"file_name" json:"fileName"`
}
