package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/biodivhub/biodiv-api/internal/dto"
	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/internal/service"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
	"github.com/biodivhub/biodiv-api/pkg/response"
)

// SubmissionHandler exposes occurrence submission endpoints.
type SubmissionHandler struct {
	submissions *service.SubmissionService
	exports     *service.ExportService
}

// NewSubmissionHandler constructs handler.
func NewSubmissionHandler(submissions *service.SubmissionService, exports *service.ExportService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, exports: exports}
}

// Upload godoc
// @Summary Upload an occurrence submission file
// @Tags Submissions
// @Accept mpfd
// @Produce json
// @Param surveyId path int true "Survey ID"
// @Param file formData file true "Submission file"
// @Success 201 {object} response.Envelope
// @Router /surveys/{surveyId}/submissions [post]
func (h *SubmissionHandler) Upload(c *gin.Context) {
	surveyID, ok := int64Param(c, "surveyId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid survey id"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "submission file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read submission file"))
		return
	}
	defer file.Close() //nolint:errcheck

	result, err := h.submissions.UploadSubmission(c.Request.Context(), surveyID, service.SubmissionUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Source:   c.PostForm("source"),
		Content:  file,
	}, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// RecordError godoc
// @Summary Record a structured submission failure
// @Tags Submissions
// @Accept json
// @Produce json
// @Param submissionId path int true "Submission ID"
// @Param payload body dto.RecordSubmissionErrorRequest true "Error payload"
// @Success 200 {object} response.Envelope
// @Router /submissions/{submissionId}/errors [post]
func (h *SubmissionHandler) RecordError(c *gin.Context) {
	submissionID, ok := int64Param(c, "submissionId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submission id"))
		return
	}

	var req dto.RecordSubmissionErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	messages := make([]models.SubmissionMessageDescriptor, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, models.SubmissionMessageDescriptor{
			Type:      msg.Type,
			Message:   msg.Message,
			ErrorCode: msg.ErrorCode,
		})
	}

	if err := h.submissions.InsertSubmissionError(c.Request.Context(), submissionID, models.SubmissionError{
		Status:   req.Status,
		Messages: messages,
	}); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "recorded"}, nil)
}

// RecordStatusAndMessage godoc
// @Summary Record a status with a single message
// @Tags Submissions
// @Accept json
// @Produce json
// @Param submissionId path int true "Submission ID"
// @Param payload body dto.RecordStatusAndMessageRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /submissions/{submissionId}/status [post]
func (h *SubmissionHandler) RecordStatusAndMessage(c *gin.Context) {
	submissionID, ok := int64Param(c, "submissionId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submission id"))
		return
	}

	var req dto.RecordStatusAndMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.submissions.InsertSubmissionStatusAndMessage(c.Request.Context(), submissionID, req.Status, req.MessageType, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// LatestStatus godoc
// @Summary Get the latest submission status with messages
// @Tags Submissions
// @Produce json
// @Param submissionId path int true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{submissionId}/status/latest [get]
func (h *SubmissionHandler) LatestStatus(c *gin.Context) {
	submissionID, ok := int64Param(c, "submissionId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submission id"))
		return
	}

	status, err := h.submissions.GetLatestStatus(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// SummarySubmission godoc
// @Summary Get the latest summary submission for a survey
// @Tags Submissions
// @Produce json
// @Param surveyId path int true "Survey ID"
// @Success 200 {object} response.Envelope
// @Router /surveys/{surveyId}/summary/submission [get]
func (h *SubmissionHandler) SummarySubmission(c *gin.Context) {
	surveyID, ok := int64Param(c, "surveyId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid survey id"))
		return
	}

	summary, err := h.submissions.GetSummarySubmission(c.Request.Context(), surveyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	// A survey without a summary submission responds with null data, not 404.
	response.JSON(c, http.StatusOK, summary, nil)
}

// ExportMessages godoc
// @Summary Export submission findings as CSV
// @Tags Submissions
// @Produce text/csv
// @Param submissionId path int true "Submission ID"
// @Success 200 {file} file
// @Router /submissions/{submissionId}/errors/export [get]
func (h *SubmissionHandler) ExportMessages(c *gin.Context) {
	submissionID, ok := int64Param(c, "submissionId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submission id"))
		return
	}

	result, err := h.exports.SubmissionMessagesCSV(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.FileName)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
