// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/storefront-campaigns/app/dto"
	"github.com/amirphl/storefront-campaigns/app/services"
	"github.com/amirphl/storefront-campaigns/config"
	"github.com/amirphl/storefront-campaigns/models"
	"github.com/amirphl/storefront-campaigns/repository"
	"github.com/amirphl/storefront-campaigns/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	logsSheetName    = "logs"
	summarySheetName = "summary"
)

// AdminCampaignFlow serves the read side of campaigns for admins
type AdminCampaignFlow interface {
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
	GetCampaign(ctx context.Context, campaignUUID string) (*dto.GetCampaignResponse, error)
	PreviewAudience(ctx context.Context, campaignUUID string) (*dto.AudiencePreviewResponse, error)
	ListCampaignLogs(ctx context.Context, req *dto.ListCampaignLogsRequest) (*dto.ListCampaignLogsResponse, error)
	ExportCampaignLogs(ctx context.Context, campaignUUID string) (string, []byte, error)
}

// AdminCampaignFlowImpl implements AdminCampaignFlow
type AdminCampaignFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	logRepo       repository.CampaignLogRepository
	resolver      SegmentResolver
	audienceCache services.AudienceCache
	cfg           config.CampaignConfig
}

// NewAdminCampaignFlow creates a new admin campaign flow instance
func NewAdminCampaignFlow(
	campaignRepo repository.CampaignRepository,
	logRepo repository.CampaignLogRepository,
	resolver SegmentResolver,
	audienceCache services.AudienceCache,
	cfg config.CampaignConfig,
) AdminCampaignFlow {
	return &AdminCampaignFlowImpl{
		campaignRepo:  campaignRepo,
		logRepo:       logRepo,
		resolver:      resolver,
		audienceCache: audienceCache,
		cfg:           withCampaignDefaults(cfg),
	}
}

// ListCampaigns retrieves campaigns with pagination, ordering and filters
func (s *AdminCampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	page, limit, offset := normalizePage(req.Page, req.Limit)

	filter := models.CampaignFilter{}
	if req.Filter != nil {
		if req.Filter.Title != nil && *req.Filter.Title != "" {
			filter.Title = req.Filter.Title
		}
		if req.Filter.Status != nil && *req.Filter.Status != "" {
			status := models.CampaignStatus(*req.Filter.Status)
			if status.Valid() {
				filter.Status = &status
			}
		}
		if req.Filter.TargetAudience != nil && *req.Filter.TargetAudience != "" {
			audience := models.TargetAudience(*req.Filter.TargetAudience)
			if audience.Valid() {
				filter.TargetAudience = &audience
			}
		}
	}

	orderBy := "created_at DESC"
	if req.OrderBy == "oldest" {
		orderBy = "created_at ASC"
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_CAMPAIGNS_FAILED", "Failed to count campaigns", err)
	}
	rows, err := s.campaignRepo.ByFilter(ctx, filter, orderBy, limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_CAMPAIGNS_FAILED", "Failed to list campaigns", err)
	}

	items := make([]dto.CampaignDTO, 0, len(rows))
	for _, c := range rows {
		items = append(items, ToCampaignDTO(*c))
	}

	return &dto.ListCampaignsResponse{
		Message:    "Campaigns retrieved successfully",
		Items:      items,
		Pagination: paginationInfo(total, page, limit),
	}, nil
}

// GetCampaign returns one campaign by its public id
func (s *AdminCampaignFlowImpl) GetCampaign(ctx context.Context, campaignUUID string) (*dto.GetCampaignResponse, error) {
	campaign, err := s.campaignByUUID(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	return &dto.GetCampaignResponse{
		Message:  "Campaign retrieved successfully",
		Campaign: ToCampaignDTO(*campaign),
	}, nil
}

// PreviewAudience resolves the audience without sending anything and caches the summary
func (s *AdminCampaignFlowImpl) PreviewAudience(ctx context.Context, campaignUUID string) (*dto.AudiencePreviewResponse, error) {
	campaign, err := s.campaignByUUID(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	key := campaign.UUID.String()

	if s.audienceCache != nil {
		cached, err := s.audienceCache.Get(ctx, key)
		if err != nil {
			log.Printf("audience preview cache read failed for %s: %v", key, err)
		} else if cached != nil {
			cached.Cached = true
			return cached, nil
		}
	}

	recipients, err := s.resolver.Resolve(ctx, campaign)
	if err != nil {
		return nil, err
	}
	eligible := eligibleRecipients(recipients, s.cfg.MinPhoneLength)

	sample := make([]string, 0, utils.AudiencePreviewSampleSize)
	for _, r := range eligible {
		if len(sample) == utils.AudiencePreviewSampleSize {
			break
		}
		sample = append(sample, utils.MaskPhone(r.Phone))
	}

	preview := &dto.AudiencePreviewResponse{
		CampaignID:         key,
		TargetAudience:     campaign.TargetAudience.String(),
		TotalCandidates:    len(recipients),
		EligibleRecipients: len(eligible),
		Sample:             sample,
	}

	if s.audienceCache != nil {
		if err := s.audienceCache.Set(ctx, key, preview); err != nil {
			log.Printf("audience preview cache write failed for %s: %v", key, err)
		}
	}
	return preview, nil
}

// ListCampaignLogs pages through delivery logs of a campaign, optionally filtered by status
func (s *AdminCampaignFlowImpl) ListCampaignLogs(ctx context.Context, req *dto.ListCampaignLogsRequest) (*dto.ListCampaignLogsResponse, error) {
	campaign, err := s.campaignByUUID(ctx, req.CampaignUUID)
	if err != nil {
		return nil, err
	}
	page, limit, offset := normalizePage(req.Page, req.PageSize)

	filter := models.CampaignLogFilter{CampaignID: &campaign.ID}
	if req.Status != nil && *req.Status != "" {
		status := models.CampaignLogStatus(*req.Status)
		if !status.Valid() {
			return nil, NewBusinessErrorf("INVALID_LOG_STATUS", "Unknown log status %q", ErrInvalidLogStatus, *req.Status)
		}
		filter.Status = &status
	}

	total, err := s.logRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_CAMPAIGN_LOGS_FAILED", "Failed to count campaign logs", err)
	}
	rows, err := s.logRepo.ByFilter(ctx, filter, "id ASC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_CAMPAIGN_LOGS_FAILED", "Failed to list campaign logs", err)
	}

	items := make([]dto.CampaignLogDTO, 0, len(rows))
	for _, l := range rows {
		items = append(items, ToCampaignLogDTO(*l))
	}

	return &dto.ListCampaignLogsResponse{
		Message:    "Campaign logs retrieved successfully",
		Items:      items,
		Pagination: paginationInfo(total, page, limit),
	}, nil
}

// ExportCampaignLogs builds an Excel workbook with every log row and a per-status summary
func (s *AdminCampaignFlowImpl) ExportCampaignLogs(ctx context.Context, campaignUUID string) (string, []byte, error) {
	campaign, err := s.campaignByUUID(ctx, campaignUUID)
	if err != nil {
		return "", nil, err
	}

	rows, err := s.logRepo.ByFilter(ctx, models.CampaignLogFilter{CampaignID: &campaign.ID}, "id ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_CAMPAIGN_LOGS_FAILED", "Failed to fetch campaign logs", err)
	}
	byStatus, err := s.logRepo.CountByStatus(ctx, campaign.ID)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_CAMPAIGN_LOGS_FAILED", "Failed to count campaign logs", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	// Rename default sheet
	xl.SetSheetName(xl.GetSheetName(0), logsSheetName)
	header := []string{"id", "uuid", "user_id", "phone", "recipient_name", "status", "error_message", "sent_at", "created_at", "message"}
	_ = xl.SetSheetRow(logsSheetName, "A1", &header)
	for i, l := range rows {
		errMsg := ""
		if l.ErrorMessage != nil {
			errMsg = *l.ErrorMessage
		}
		sentAt := ""
		if l.SentAt != nil {
			sentAt = l.SentAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.FormatUint(uint64(l.ID), 10),
			l.UUID.String(),
			l.UserID,
			l.Phone,
			l.RecipientName,
			l.Status.String(),
			errMsg,
			sentAt,
			l.CreatedAt.UTC().Format(time.RFC3339),
			l.Message,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(logsSheetName, cellRef, &record)
	}

	if _, err := xl.NewSheet(summarySheetName); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to create summary sheet", err)
	}
	summary := [][]any{
		{"campaign_id", campaign.UUID.String()},
		{"title", campaign.Title},
		{"status", campaign.Status.String()},
		{"target_audience", campaign.TargetAudience.String()},
		{"total_recipients", campaign.TotalRecipients},
		{"sent_count", campaign.SentCount},
		{"delivered_count", campaign.DeliveredCount},
		{"failed_count", campaign.FailedCount},
		{"logs_pending", byStatus[models.CampaignLogStatusPending]},
		{"logs_sent", byStatus[models.CampaignLogStatusSent]},
		{"logs_failed", byStatus[models.CampaignLogStatusFailed]},
	}
	for i, row := range summary {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = xl.SetSheetRow(summarySheetName, cellRef, &row)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("campaign_%s_logs.xlsx", campaign.UUID.String())
	return filename, buf.Bytes(), nil
}

func (s *AdminCampaignFlowImpl) campaignByUUID(ctx context.Context, campaignUUID string) (*models.Campaign, error) {
	id, err := uuid.Parse(strings.TrimSpace(campaignUUID))
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_ID_REQUIRED", "A valid campaign id is required", ErrCampaignIDRequired)
	}
	campaign, err := s.campaignRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to load campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	return campaign, nil
}

func normalizePage(page, limit int) (int, int, int) {
	page = max(1, page)
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	return page, limit, (page - 1) * limit
}

func paginationInfo(total int64, page, limit int) dto.PaginationInfo {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return dto.PaginationInfo{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
