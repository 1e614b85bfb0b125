package handlers

import (
	"log"
	"strconv"

	"github.com/amirphl/storefront-campaigns/app/dto"
	businessflow "github.com/amirphl/storefront-campaigns/business_flow"
	"github.com/gofiber/fiber/v3"
)

// CampaignAdminHandlerInterface defines the contract for campaign admin handlers
type CampaignAdminHandlerInterface interface {
	ListCampaigns(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	PreviewAudience(c fiber.Ctx) error
	ListCampaignLogs(c fiber.Ctx) error
	ExportCampaignLogs(c fiber.Ctx) error
}

// CampaignAdminHandler handles the read side of campaigns for admins
type CampaignAdminHandler struct {
	campaignFlow businessflow.AdminCampaignFlow
}

func NewCampaignAdminHandler(flow businessflow.AdminCampaignFlow) CampaignAdminHandlerInterface {
	return &CampaignAdminHandler{
		campaignFlow: flow,
	}
}

func (h *CampaignAdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignAdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// campaignLookupError writes the response for errors shared by every per-campaign endpoint
func (h *CampaignAdminHandler) campaignLookupError(c fiber.Ctx, err error) (bool, error) {
	if businessflow.IsCampaignIDRequired(err) {
		return true, h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign id must be a valid UUID", "CAMPAIGN_ID_REQUIRED", nil)
	}
	if businessflow.IsCampaignNotFound(err) {
		return true, h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	}
	return false, nil
}

func queryInt(c fiber.Ctx, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// ListCampaigns returns campaigns filtered for admin
// @Summary Admin List Campaigns
// @Description Retrieve campaigns by title, status and target audience, newest first
// @Tags Admin Campaigns
// @Produce json
// @Security BearerAuth
// @Param title query string false "Filter by title (contains)"
// @Param status query string false "Filter by status (draft|scheduled|sending|sent)"
// @Param target_audience query string false "Filter by target audience (all|customers|sellers)"
// @Param orderby query string false "newest|oldest"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/campaigns [get]
func (h *CampaignAdminHandler) ListCampaigns(c fiber.Ctx) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page", "INVALID_PAGINATION", nil)
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid limit", "INVALID_PAGINATION", nil)
	}

	filter := &dto.ListCampaignsFilter{}
	if v := c.Query("title"); v != "" {
		filter.Title = &v
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("target_audience"); v != "" {
		filter.TargetAudience = &v
	}

	req := &dto.ListCampaignsRequest{
		Page:    page,
		Limit:   limit,
		OrderBy: c.Query("orderby"),
		Filter:  filter,
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/campaigns", 0)
	defer cancel()

	resp, err := h.campaignFlow.ListCampaigns(ctx, req)
	if err != nil {
		log.Println("Admin list campaigns failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "ADMIN_LIST_CAMPAIGNS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", resp)
}

// GetCampaign returns one campaign
// @Summary Admin Get Campaign
// @Tags Admin Campaigns
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.GetCampaignResponse}
// @Failure 400 {object} dto.APIResponse "Invalid campaign id"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/campaigns/{uuid} [get]
func (h *CampaignAdminHandler) GetCampaign(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/campaigns/:uuid", 0)
	defer cancel()

	resp, err := h.campaignFlow.GetCampaign(ctx, c.Params("uuid"))
	if err != nil {
		if handled, res := h.campaignLookupError(c, err); handled {
			return res
		}
		log.Println("Admin get campaign failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get campaign", "ADMIN_GET_CAMPAIGN_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", resp)
}

// PreviewAudience resolves the audience without sending anything
// @Summary Admin Audience Preview
// @Description Count the candidates and eligible recipients a dispatch would reach right now, with a masked sample
// @Tags Admin Campaigns
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.AudiencePreviewResponse}
// @Failure 400 {object} dto.APIResponse "Invalid campaign id"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/campaigns/{uuid}/audience-preview [get]
func (h *CampaignAdminHandler) PreviewAudience(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/campaigns/:uuid/audience-preview", 0)
	defer cancel()

	resp, err := h.campaignFlow.PreviewAudience(ctx, c.Params("uuid"))
	if err != nil {
		if handled, res := h.campaignLookupError(c, err); handled {
			return res
		}
		log.Println("Admin audience preview failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to preview audience", "AUDIENCE_PREVIEW_FAILED", err.Error())
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Audience preview generated", resp)
}

// ListCampaignLogs pages through the delivery logs of a campaign
// @Summary Admin List Campaign Logs
// @Tags Admin Campaigns
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Campaign UUID"
// @Param status query string false "pending|sent|failed"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignLogsResponse}
// @Failure 400 {object} dto.APIResponse "Invalid campaign id, status or pagination"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/campaigns/{uuid}/logs [get]
func (h *CampaignAdminHandler) ListCampaignLogs(c fiber.Ctx) error {
	var req dto.ListCampaignLogsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	req.CampaignUUID = c.Params("uuid")

	ctx, cancel := createRequestContext(c, "/api/v1/admin/campaigns/:uuid/logs", 0)
	defer cancel()

	resp, err := h.campaignFlow.ListCampaignLogs(ctx, &req)
	if err != nil {
		if handled, res := h.campaignLookupError(c, err); handled {
			return res
		}
		if businessflow.IsInvalidLogStatus(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown log status", "INVALID_LOG_STATUS", nil)
		}
		log.Println("Admin list campaign logs failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaign logs", "LIST_CAMPAIGN_LOGS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign logs retrieved successfully", resp)
}

// ExportCampaignLogs downloads every log of a campaign as an Excel workbook
// @Summary Admin Export Campaign Logs (Excel)
// @Tags Admin Campaigns
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param uuid path string true "Campaign UUID"
// @Success 200 {string} string "Excel file"
// @Failure 400 {object} dto.APIResponse "Invalid campaign id"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/campaigns/{uuid}/logs/export [get]
func (h *CampaignAdminHandler) ExportCampaignLogs(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/campaigns/:uuid/logs/export", 0)
	defer cancel()

	filename, data, err := h.campaignFlow.ExportCampaignLogs(ctx, c.Params("uuid"))
	if err != nil {
		if handled, res := h.campaignLookupError(c, err); handled {
			return res
		}
		log.Println("Admin export campaign logs failed:", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate Excel", "DOWNLOAD_FAILED", nil)
	}
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}
