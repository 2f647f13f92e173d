package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/biodivhub/biodiv-api/internal/dto"
	"github.com/biodivhub/biodiv-api/internal/repository"
	"github.com/biodivhub/biodiv-api/internal/service"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
	"github.com/biodivhub/biodiv-api/pkg/response"
)

// RegionHandler exposes region lookup and association endpoints.
type RegionHandler struct {
	regions *service.RegionService
}

// NewRegionHandler constructs handler.
func NewRegionHandler(regions *service.RegionService) *RegionHandler {
	return &RegionHandler{regions: regions}
}

// Search godoc
// @Summary Search regions by name and source layer
// @Tags Regions
// @Accept json
// @Produce json
// @Param payload body dto.SearchRegionsRequest true "Search payload"
// @Success 200 {object} response.Envelope
// @Router /regions/search [post]
func (h *RegionHandler) Search(c *gin.Context) {
	var req dto.SearchRegionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	regions, err := h.regions.SearchByDetails(c.Request.Context(), req.Details)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regions, nil)
}

// ReplaceProjectRegions godoc
// @Summary Replace a project's region associations
// @Tags Regions
// @Accept json
// @Produce json
// @Param projectId path int true "Project ID"
// @Param payload body dto.ReplaceRegionsRequest true "Region ids"
// @Success 200 {object} response.Envelope
// @Router /projects/{projectId}/regions [put]
func (h *RegionHandler) ReplaceProjectRegions(c *gin.Context) {
	h.replaceRegions(c, repository.RegionOwnerProject, "projectId")
}

// ReplaceSurveyRegions godoc
// @Summary Replace a survey's region associations
// @Tags Regions
// @Accept json
// @Produce json
// @Param surveyId path int true "Survey ID"
// @Param payload body dto.ReplaceRegionsRequest true "Region ids"
// @Success 200 {object} response.Envelope
// @Router /surveys/{surveyId}/regions [put]
func (h *RegionHandler) ReplaceSurveyRegions(c *gin.Context) {
	h.replaceRegions(c, repository.RegionOwnerSurvey, "surveyId")
}

// ListProjectRegions godoc
// @Summary List a project's associated regions
// @Tags Regions
// @Produce json
// @Param projectId path int true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{projectId}/regions [get]
func (h *RegionHandler) ListProjectRegions(c *gin.Context) {
	h.listRegions(c, repository.RegionOwnerProject, "projectId")
}

// ListSurveyRegions godoc
// @Summary List a survey's associated regions
// @Tags Regions
// @Produce json
// @Param surveyId path int true "Survey ID"
// @Success 200 {object} response.Envelope
// @Router /surveys/{surveyId}/regions [get]
func (h *RegionHandler) ListSurveyRegions(c *gin.Context) {
	h.listRegions(c, repository.RegionOwnerSurvey, "surveyId")
}

func (h *RegionHandler) replaceRegions(c *gin.Context, owner repository.RegionOwner, param string) {
	ownerID, ok := int64Param(c, param)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+param))
		return
	}

	var req dto.ReplaceRegionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.regions.ReplaceAssociations(c.Request.Context(), owner, ownerID, req.RegionIDs); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "replaced", "count": len(req.RegionIDs)}, nil)
}

func (h *RegionHandler) listRegions(c *gin.Context, owner repository.RegionOwner, param string) {
	ownerID, ok := int64Param(c, param)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+param))
		return
	}

	regions, err := h.regions.ListAssociated(c.Request.Context(), owner, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regions, nil)
}
