package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/amirphl/storefront-campaigns/config"
	"github.com/amirphl/storefront-campaigns/models"
	"github.com/amirphl/storefront-campaigns/repository"
	"github.com/amirphl/storefront-campaigns/utils"
)

// RecipientEnricher attaches order-derived attributes to customer recipients
type RecipientEnricher interface {
	Enrich(ctx context.Context, recipient *models.Recipient) error
	EnrichAll(ctx context.Context, recipients []models.Recipient)
}

// RecipientEnricherImpl implements RecipientEnricher
type RecipientEnricherImpl struct {
	orderRepo repository.OrderRepository
	cfg       config.CampaignConfig
	logger    *log.Logger
}

// NewRecipientEnricher creates a new recipient enricher
func NewRecipientEnricher(orderRepo repository.OrderRepository, cfg config.CampaignConfig, logger *log.Logger) *RecipientEnricherImpl {
	if logger == nil {
		logger = log.Default()
	}
	return &RecipientEnricherImpl{
		orderRepo: orderRepo,
		cfg:       withCampaignDefaults(cfg),
		logger:    logger,
	}
}

// Enrich sets order statistics, tier, last order and preferred products.
// A user without orders, or a failed read, leaves the recipient untouched.
func (e *RecipientEnricherImpl) Enrich(ctx context.Context, recipient *models.Recipient) error {
	stats, err := e.orderRepo.StatsByUser(ctx, recipient.UserID)
	if err != nil {
		return fmt.Errorf("failed to load order stats for %s: %w", recipient.UserID, err)
	}
	if stats == nil || stats.TotalOrders == 0 {
		return nil
	}

	latest, err := e.orderRepo.LatestByUser(ctx, recipient.UserID)
	if err != nil {
		return fmt.Errorf("failed to load latest order for %s: %w", recipient.UserID, err)
	}

	tier := models.TierForSpend(stats.TotalSpent, e.cfg.PremiumTierThreshold, e.cfg.GoldTierThreshold)
	recipient.Tier = &tier
	recipient.TotalOrders = utils.ToPtr(stats.TotalOrders)
	recipient.TotalSpent = utils.ToPtr(stats.TotalSpent)
	recipient.AverageOrderValue = utils.ToPtr(stats.AverageOrderValue)

	if latest != nil {
		recipient.LastOrderAmount = utils.ToPtr(latest.TotalAmount)
		recipient.LastOrderDate = utils.ToPtr(latest.CreatedAt)
		recipient.PreferredProducts = preferredProducts(latest.ProductTitles)
	}
	return nil
}

// EnrichAll enriches every recipient in place. Failures are logged and skipped.
func (e *RecipientEnricherImpl) EnrichAll(ctx context.Context, recipients []models.Recipient) {
	for i := range recipients {
		if err := e.Enrich(ctx, &recipients[i]); err != nil {
			e.logger.Printf("enrichment skipped for user %s: %v", recipients[i].UserID, err)
		}
	}
}

func preferredProducts(titles []string) []string {
	out := make([]string, 0, utils.MaxPreferredProducts)
	for _, t := range titles {
		if len(out) == utils.MaxPreferredProducts {
			break
		}
		if t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
