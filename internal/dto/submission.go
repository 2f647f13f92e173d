package dto

import "github.com/biodivhub/biodiv-api/internal/models"

// RecordSubmissionErrorRequest carries one structured processing failure: a
// single status umbrella plus its sibling findings.
type RecordSubmissionErrorRequest struct {
	Status   models.SubmissionStatusType    `json:"status" binding:"required"`
	Messages []SubmissionMessageDescriptor  `json:"messages" binding:"required,min=1,dive"`
}

// SubmissionMessageDescriptor mirrors models.SubmissionMessageDescriptor with
// request validation tags.
type SubmissionMessageDescriptor struct {
	Type      models.SubmissionMessageType `json:"type" binding:"required"`
	Message   string                       `json:"message" binding:"required"`
	ErrorCode string                       `json:"errorCode"`
}

// RecordStatusAndMessageRequest records one status with exactly one message.
type RecordStatusAndMessageRequest struct {
	Status      models.SubmissionStatusType  `json:"status" binding:"required"`
	MessageType models.SubmissionMessageType `json:"messageType" binding:"required"`
	Message     string                       `json:"message" binding:"required"`
}

// StatusAndMessageResponse returns the ids of the inserted pair.
type StatusAndMessageResponse struct {
	SubmissionStatusID  int64 `json:"submission_status_id"`
	SubmissionMessageID int64 `json:"submission_message_id"`
}

// SubmissionResponse describes an uploaded submission.
type SubmissionResponse struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	Status   string `json:"status"`
}

// SubmissionStatusResponse is the latest-status view of a submission.
type SubmissionStatusResponse struct {
	SubmissionID int64                        `json:"submission_id"`
	Status       models.SubmissionStatusType  `json:"status"`
	Messages     []models.SubmissionMessage   `json:"messages,omitempty"`
}
