package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/biodivhub/biodiv-api/internal/service"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
	"github.com/biodivhub/biodiv-api/pkg/response"
)

// AttachmentHandler exposes survey attachment endpoints.
type AttachmentHandler struct {
	attachments *service.AttachmentService
	exports     *service.ExportService
}

// NewAttachmentHandler constructs handler.
func NewAttachmentHandler(attachments *service.AttachmentService, exports *service.ExportService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments, exports: exports}
}

// Upload godoc
// @Summary Upload a survey attachment
// @Tags Attachments
// @Accept mpfd
// @Produce json
// @Param surveyId path int true "Survey ID"
// @Param file formData file true "Attachment file"
// @Param attachmentType formData string true "Attachment type (Report or Other)"
// @Success 201 {object} response.Envelope
// @Router /surveys/{surveyId}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	surveyID, ok := int64Param(c, "surveyId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid survey id"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "attachment file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read attachment file"))
		return
	}
	defer file.Close() //nolint:errcheck

	att, err := h.attachments.Upload(c.Request.Context(), surveyID, service.AttachmentUpload{
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Type:        c.PostForm("attachmentType"),
		Content:     file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, att)
}

// List godoc
// @Summary List survey attachments with their security state
// @Tags Attachments
// @Produce json
// @Param surveyId path int true "Survey ID"
// @Param attachmentType query string true "Attachment type (Report or Other)"
// @Success 200 {object} response.Envelope
// @Router /surveys/{surveyId}/attachments [get]
func (h *AttachmentHandler) List(c *gin.Context) {
	surveyID, ok := int64Param(c, "surveyId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid survey id"))
		return
	}

	items, err := h.attachments.ListWithClassification(c.Request.Context(), c.Query("attachmentType"), surveyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// SignDownload godoc
// @Summary Issue a time-limited download token for an attachment
// @Tags Attachments
// @Produce json
// @Param surveyId path int true "Survey ID"
// @Param attachmentId path int true "Attachment ID"
// @Param attachmentType query string true "Attachment type (Report or Other)"
// @Success 200 {object} response.Envelope
// @Router /surveys/{surveyId}/attachments/{attachmentId}/download [get]
func (h *AttachmentHandler) SignDownload(c *gin.Context) {
	surveyID, ok := int64Param(c, "surveyId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid survey id"))
		return
	}
	attachmentID, ok := int64Param(c, "attachmentId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid attachment id"))
		return
	}

	grant, err := h.attachments.SignDownload(c.Request.Context(), c.Query("attachmentType"), surveyID, attachmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// Download godoc
// @Summary Stream an attachment using a signed token
// @Tags Attachments
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /attachments/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download token is required"))
		return
	}

	file, err := h.attachments.OpenSigned(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

// ExportSecuritySummary godoc
// @Summary Export a survey's attachment security summary as PDF
// @Tags Attachments
// @Produce application/pdf
// @Param surveyId path int true "Survey ID"
// @Success 200 {file} file
// @Router /surveys/{surveyId}/security/export [get]
func (h *AttachmentHandler) ExportSecuritySummary(c *gin.Context) {
	surveyID, ok := int64Param(c, "surveyId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid survey id"))
		return
	}

	result, err := h.exports.SurveySecuritySummaryPDF(c.Request.Context(), surveyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.FileName)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
