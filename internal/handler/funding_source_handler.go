package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/biodivhub/biodiv-api/internal/dto"
	"github.com/biodivhub/biodiv-api/internal/service"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
	"github.com/biodivhub/biodiv-api/pkg/response"
)

// FundingSourceHandler exposes funding source CRUD endpoints.
type FundingSourceHandler struct {
	fundingSources *service.FundingSourceService
}

// NewFundingSourceHandler constructs handler.
func NewFundingSourceHandler(fundingSources *service.FundingSourceService) *FundingSourceHandler {
	return &FundingSourceHandler{fundingSources: fundingSources}
}

// Create godoc
// @Summary Create a funding source
// @Tags FundingSources
// @Accept json
// @Produce json
// @Param payload body dto.CreateFundingSourceRequest true "Funding source payload"
// @Success 201 {object} response.Envelope
// @Router /funding-sources [post]
func (h *FundingSourceHandler) Create(c *gin.Context) {
	var req dto.CreateFundingSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	fs, err := h.fundingSources.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fs)
}

// Get godoc
// @Summary Get a funding source
// @Tags FundingSources
// @Produce json
// @Param id path int true "Funding source ID"
// @Success 200 {object} response.Envelope
// @Router /funding-sources/{id} [get]
func (h *FundingSourceHandler) Get(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid funding source id"))
		return
	}

	fs, err := h.fundingSources.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fs, nil)
}

// List godoc
// @Summary List funding sources
// @Tags FundingSources
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /funding-sources [get]
func (h *FundingSourceHandler) List(c *gin.Context) {
	items, err := h.fundingSources.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Update godoc
// @Summary Update a funding source
// @Tags FundingSources
// @Accept json
// @Produce json
// @Param id path int true "Funding source ID"
// @Param payload body dto.UpdateFundingSourceRequest true "Funding source payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Revision count is stale"
// @Router /funding-sources/{id} [put]
func (h *FundingSourceHandler) Update(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid funding source id"))
		return
	}

	var req dto.UpdateFundingSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	fs, err := h.fundingSources.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fs, nil)
}

// Delete godoc
// @Summary Delete a funding source
// @Tags FundingSources
// @Param id path int true "Funding source ID"
// @Success 204
// @Router /funding-sources/{id} [delete]
func (h *FundingSourceHandler) Delete(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid funding source id"))
		return
	}

	if err := h.fundingSources.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
