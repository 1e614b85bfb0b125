package handlers

import (
	"log"
	"time"

	"github.com/amirphl/storefront-campaigns/app/dto"
	businessflow "github.com/amirphl/storefront-campaigns/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CampaignDispatchHandlerInterface defines the contract for the dispatch handler
type CampaignDispatchHandlerInterface interface {
	DispatchCampaign(c fiber.Ctx) error
}

// CampaignDispatchHandler handles campaign dispatch requests
type CampaignDispatchHandler struct {
	dispatchFlow businessflow.CampaignDispatchFlow
	validator    *validator.Validate
	timeout      time.Duration
}

// NewCampaignDispatchHandler creates a dispatch handler whose flow runs under the given timeout
func NewCampaignDispatchHandler(flow businessflow.CampaignDispatchFlow, timeout time.Duration) *CampaignDispatchHandler {
	return &CampaignDispatchHandler{
		dispatchFlow: flow,
		validator:    validator.New(),
		timeout:      timeout,
	}
}

func (h *CampaignDispatchHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignDispatchHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// DispatchCampaign sends a campaign to its resolved audience
// @Summary Dispatch Campaign
// @Description Resolve the campaign audience, send one WhatsApp message per eligible recipient and record the outcome
// @Tags Admin Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.DispatchCampaignRequest true "Campaign to dispatch"
// @Success 200 {object} dto.APIResponse{data=dto.DispatchCampaignResponse} "Dispatch finished, possibly with failed recipients"
// @Failure 400 {object} dto.APIResponse "Invalid request, campaign already sent or no eligible recipients"
// @Failure 401 {object} dto.APIResponse "Missing or invalid token"
// @Failure 403 {object} dto.APIResponse "Caller is not an admin"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Dispatch already in progress"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/campaigns/dispatch [post]
func (h *CampaignDispatchHandler) DispatchCampaign(c fiber.Ctx) error {
	var req dto.DispatchCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.Normalize()

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/campaigns/dispatch", h.timeout)
	defer cancel()

	result, err := h.dispatchFlow.DispatchCampaign(ctx, req.CampaignID, clientMetadata(c))
	if err != nil {
		switch {
		case businessflow.IsCampaignIDRequired(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign id is required", "CAMPAIGN_ID_REQUIRED", nil)
		case businessflow.IsCampaignNotFound(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		case businessflow.IsCampaignAlreadySent(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign has already been sent", "CAMPAIGN_ALREADY_SENT", nil)
		case businessflow.IsNoEligibleRecipients(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No eligible recipients found for this campaign", "NO_ELIGIBLE_RECIPIENTS", nil)
		case businessflow.IsCampaignDispatchInProgress(err):
			return h.ErrorResponse(c, fiber.StatusConflict, "Campaign is currently being sent", "CAMPAIGN_DISPATCH_IN_PROGRESS", nil)
		}

		log.Println("Campaign dispatch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send campaign", "CAMPAIGN_DISPATCH_FAILED", err.Error())
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign dispatched", result)
}
