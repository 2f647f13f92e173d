package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/biodivhub/biodiv-api/internal/dto"
	"github.com/biodivhub/biodiv-api/internal/service"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
	"github.com/biodivhub/biodiv-api/pkg/response"
)

// SecurityHandler exposes the attachment security review endpoints.
type SecurityHandler struct {
	security *service.SecurityService
}

// NewSecurityHandler constructs handler.
func NewSecurityHandler(security *service.SecurityService) *SecurityHandler {
	return &SecurityHandler{security: security}
}

// Apply godoc
// @Summary Apply security rules to an attachment
// @Tags Security
// @Accept json
// @Produce json
// @Param projectId path int true "Project ID"
// @Param surveyId path int true "Survey ID"
// @Param attachmentId path int true "Attachment ID"
// @Param payload body dto.ApplySecurityRequest true "Security payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{projectId}/surveys/{surveyId}/attachments/{attachmentId}/security/apply [put]
func (h *SecurityHandler) Apply(c *gin.Context) {
	projectID, ok := int64Param(c, "projectId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid project id"))
		return
	}
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

	var req dto.ApplySecurityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	affected, err := h.security.MakeAttachmentSecure(c.Request.Context(), service.MakeSecureParams{
		ProjectID:      projectID,
		SurveyID:       surveyID,
		AttachmentID:   attachmentID,
		AttachmentType: req.AttachmentType,
		RuleIDs:        req.SecurityReasonIDs,
		Actor:          claimsFromContext(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ApplySecurityResponse{RowCount: affected}, nil)
}

// Remove godoc
// @Summary Remove all security rules from an attachment
// @Tags Security
// @Accept json
// @Produce json
// @Param projectId path int true "Project ID"
// @Param surveyId path int true "Survey ID"
// @Param attachmentId path int true "Attachment ID"
// @Param payload body dto.RemoveSecurityRequest true "Removal payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{projectId}/surveys/{surveyId}/attachments/{attachmentId}/security [delete]
func (h *SecurityHandler) Remove(c *gin.Context) {
	projectID, ok := int64Param(c, "projectId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid project id"))
		return
	}
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

	var req dto.RemoveSecurityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	affected, err := h.security.RemoveAttachmentSecurity(c.Request.Context(), service.RemoveSecurityParams{
		ProjectID:      projectID,
		SurveyID:       surveyID,
		AttachmentID:   attachmentID,
		AttachmentType: req.AttachmentType,
		Actor:          claimsFromContext(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ApplySecurityResponse{RowCount: affected}, nil)
}

// Reasons godoc
// @Summary List the security reasons applied to an attachment
// @Tags Security
// @Produce json
// @Param projectId path int true "Project ID"
// @Param surveyId path int true "Survey ID"
// @Param attachmentId path int true "Attachment ID"
// @Param attachmentType query string true "Attachment type (Report or Other)"
// @Success 200 {object} response.Envelope
// @Router /projects/{projectId}/surveys/{surveyId}/attachments/{attachmentId}/security/reasons [get]
func (h *SecurityHandler) Reasons(c *gin.Context) {
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

	reasons, err := h.security.GetAttachmentSecurityReasons(c.Request.Context(), c.Query("attachmentType"), surveyID, attachmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reasons, nil)
}

// Rules godoc
// @Summary List the security rule catalog
// @Tags Security
// @Produce json
// @Param category query string false "Rule category"
// @Success 200 {object} response.Envelope
// @Router /security-rules [get]
func (h *SecurityHandler) Rules(c *gin.Context) {
	rules, err := h.security.ListSecurityRules(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}
