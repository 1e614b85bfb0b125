package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/amirphl/storefront-campaigns/app/dto"
	"github.com/amirphl/storefront-campaigns/app/services"
	"github.com/amirphl/storefront-campaigns/config"
	"github.com/amirphl/storefront-campaigns/models"
	"github.com/amirphl/storefront-campaigns/repository"
	"github.com/amirphl/storefront-campaigns/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// transportFailureMessage is logged when the transport declines a message without an error
const transportFailureMessage = "transport reported failure"

// CampaignDispatchFlow handles sending a campaign to its resolved audience
type CampaignDispatchFlow interface {
	DispatchCampaign(ctx context.Context, campaignUUID string, metadata *ClientMetadata) (*dto.DispatchCampaignResponse, error)
}

// CampaignDispatchFlowImpl implements the campaign dispatch business flow
type CampaignDispatchFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	logRepo       repository.CampaignLogRepository
	resolver      SegmentResolver
	enricher      RecipientEnricher
	renderer      MessageRenderer
	transport     services.WhatsAppService
	audienceCache services.AudienceCache
	db            *gorm.DB
	cfg           config.CampaignConfig
	logger        *log.Logger
	now           func() time.Time
}

// NewCampaignDispatchFlow creates a new campaign dispatch flow instance
func NewCampaignDispatchFlow(
	campaignRepo repository.CampaignRepository,
	logRepo repository.CampaignLogRepository,
	resolver SegmentResolver,
	enricher RecipientEnricher,
	renderer MessageRenderer,
	transport services.WhatsAppService,
	audienceCache services.AudienceCache,
	db *gorm.DB,
	cfg config.CampaignConfig,
	logger *log.Logger,
) CampaignDispatchFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &CampaignDispatchFlowImpl{
		campaignRepo:  campaignRepo,
		logRepo:       logRepo,
		resolver:      resolver,
		enricher:      enricher,
		renderer:      renderer,
		transport:     transport,
		audienceCache: audienceCache,
		db:            db,
		cfg:           withCampaignDefaults(cfg),
		logger:        logger,
		now:           utils.UTCNow,
	}
}

// dispatchTally counts outcomes of one run
type dispatchTally struct {
	sent      int
	delivered int
	failed    int
}

// DispatchCampaign resolves the audience, sends one message per eligible recipient and records the result
func (s *CampaignDispatchFlowImpl) DispatchCampaign(ctx context.Context, campaignUUID string, metadata *ClientMetadata) (*dto.DispatchCampaignResponse, error) {
	started := time.Now()
	result := "rejected"
	defer func() {
		dispatchRunsTotal.WithLabelValues(result).Inc()
	}()

	campaign, eligible, err := s.prepare(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	result = "failed"

	caller := ""
	if metadata != nil {
		caller = metadata.CallerID
	}
	s.logger.Printf("campaign %s: dispatching to %d recipients (audience=%s, mode=%s, caller=%s)",
		campaign.UUID, len(eligible), campaign.TargetAudience, s.cfg.StatusMode, caller)

	if campaign.TargetAudience == models.TargetAudienceCustomers {
		s.enricher.EnrichAll(ctx, eligible)
	}

	preStatus := models.CampaignStatusSending
	if s.cfg.IsLegacyStatusMode() {
		preStatus = models.CampaignStatusSent
	}
	claimed, err := s.campaignRepo.ClaimForDispatch(ctx, campaign.ID, preStatus)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_STATUS_UPDATE_FAILED", "Failed to mark campaign before sending", err)
	}
	if !claimed {
		result = "rejected"
		if s.cfg.IsLegacyStatusMode() {
			return nil, NewBusinessError("CAMPAIGN_ALREADY_SENT", "Campaign has already been sent", ErrCampaignAlreadySent)
		}
		return nil, NewBusinessError("CAMPAIGN_DISPATCH_IN_PROGRESS", "Campaign is currently being sent", ErrCampaignDispatchInProgress)
	}

	tally := s.sendAll(ctx, campaign, eligible)

	stats := models.CampaignStatistics{
		TotalRecipients: len(eligible),
		SentCount:       tally.sent,
		DeliveredCount:  tally.delivered,
		FailedCount:     tally.failed,
		SentAt:          s.now(),
	}
	// outcome is persisted even if the request context has ended
	finalizeCtx := context.WithoutCancel(ctx)
	if err := s.finalizeCampaign(finalizeCtx, campaign, stats); err != nil {
		s.logger.Printf("campaign %s: finalize failed after sent=%d failed=%d: %v", campaign.UUID, tally.sent, tally.failed, err)
		return nil, NewBusinessError("CAMPAIGN_FINALIZE_FAILED", "Failed to record campaign results", err)
	}

	if s.audienceCache != nil {
		if err := s.audienceCache.Invalidate(finalizeCtx, campaign.UUID.String()); err != nil {
			s.logger.Printf("campaign %s: audience preview invalidation failed: %v", campaign.UUID, err)
		}
	}

	result = "completed"
	dispatchDuration.WithLabelValues(campaign.TargetAudience.String()).Observe(time.Since(started).Seconds())
	s.logger.Printf("campaign %s: done total=%d sent=%d failed=%d in %s",
		campaign.UUID, stats.TotalRecipients, stats.SentCount, stats.FailedCount, time.Since(started).Round(time.Millisecond))

	return &dto.DispatchCampaignResponse{
		Success:         true,
		CampaignID:      campaign.UUID.String(),
		TotalRecipients: stats.TotalRecipients,
		SentCount:       stats.SentCount,
		DeliveredCount:  stats.DeliveredCount,
		FailedCount:     stats.FailedCount,
		SegmentationCriteria: dto.SegmentationCriteria{
			TargetAudience:  campaign.TargetAudience.String(),
			CustomerSegment: dto.DispatchSegmentDTO(toSegmentDTO(campaign.CustomerSegment)),
		},
	}, nil
}

// prepare runs every check that must pass before anything is written
func (s *CampaignDispatchFlowImpl) prepare(ctx context.Context, campaignUUID string) (*models.Campaign, []models.Recipient, error) {
	id, err := uuid.Parse(strings.TrimSpace(campaignUUID))
	if err != nil {
		return nil, nil, NewBusinessError("CAMPAIGN_ID_REQUIRED", "A valid campaign id is required", ErrCampaignIDRequired)
	}

	campaign, err := s.campaignRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to load campaign", err)
	}
	if campaign == nil {
		return nil, nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	switch campaign.Status {
	case models.CampaignStatusSent:
		return nil, nil, NewBusinessError("CAMPAIGN_ALREADY_SENT", "Campaign has already been sent", ErrCampaignAlreadySent)
	case models.CampaignStatusSending:
		return nil, nil, NewBusinessError("CAMPAIGN_DISPATCH_IN_PROGRESS", "Campaign is currently being sent", ErrCampaignDispatchInProgress)
	}

	recipients, err := s.resolver.Resolve(ctx, campaign)
	if err != nil {
		return nil, nil, err
	}

	eligible := eligibleRecipients(recipients, s.cfg.MinPhoneLength)
	if len(eligible) == 0 {
		return nil, nil, NewBusinessError("NO_ELIGIBLE_RECIPIENTS", "No recipients with a valid phone number", ErrNoEligibleRecipients)
	}
	return campaign, eligible, nil
}

// sendAll sends to every recipient in order and writes exactly one log row per recipient
func (s *CampaignDispatchFlowImpl) sendAll(ctx context.Context, campaign *models.Campaign, recipients []models.Recipient) dispatchTally {
	var tally dispatchTally
	persistCtx := context.WithoutCancel(ctx)

	for _, recipient := range recipients {
		body := s.renderer.Render(campaign.Message, recipient)
		entry := &models.CampaignLog{
			CampaignID:    campaign.ID,
			UserID:        recipient.UserID,
			Phone:         recipient.Phone,
			RecipientName: recipient.Name,
			Message:       body,
			Status:        models.CampaignLogStatusPending,
		}

		ok, sendErr := s.send(ctx, recipient, body)
		if ok {
			entry.MarkSent(s.now())
			tally.sent++
			tally.delivered++
		} else {
			reason := transportFailureMessage
			if sendErr != nil {
				reason = sendErr.Error()
			}
			entry.MarkFailed(reason)
			tally.failed++
		}
		dispatchMessagesTotal.WithLabelValues(entry.Status.String()).Inc()

		if err := s.logRepo.Save(persistCtx, entry); err != nil {
			s.logger.Printf("campaign %s: failed to save log for user %s: %v", campaign.UUID, recipient.UserID, err)
		}
	}
	return tally
}

// send calls the transport unless the run has been cancelled
func (s *CampaignDispatchFlowImpl) send(ctx context.Context, recipient models.Recipient, body string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("dispatch aborted before send: %w", err)
	}
	return s.transport.SendMarketingMessage(ctx, recipient.Phone, recipient.Name, body)
}

// finalizeCampaign writes the terminal status and counters atomically
func (s *CampaignDispatchFlowImpl) finalizeCampaign(ctx context.Context, campaign *models.Campaign, stats models.CampaignStatistics) error {
	return repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.UpdateStatistics(txCtx, campaign.ID, models.CampaignStatusSent, stats)
	})
}

func eligibleRecipients(recipients []models.Recipient, minPhoneLength int) []models.Recipient {
	out := make([]models.Recipient, 0, len(recipients))
	for _, r := range recipients {
		if r.HasPhone(minPhoneLength) {
			out = append(out, r)
		}
	}
	return out
}
