package businessflow

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/amirphl/storefront-campaigns/config"
	"github.com/amirphl/storefront-campaigns/models"
	"github.com/amirphl/storefront-campaigns/repository"
	"github.com/amirphl/storefront-campaigns/utils"
)

// SegmentResolver turns a campaign's targeting into a concrete recipient list
type SegmentResolver interface {
	Resolve(ctx context.Context, campaign *models.Campaign) ([]models.Recipient, error)
}

// SegmentResolverImpl implements SegmentResolver over the storefront read models
type SegmentResolverImpl struct {
	orderRepo      repository.OrderRepository
	contactRepo    repository.ContactRepository
	addressRepo    repository.BuyerAddressRepository
	preferenceRepo repository.CustomerPreferenceRepository
	businessRepo   repository.BusinessRepository
	cfg            config.CampaignConfig
	now            func() time.Time
}

// NewSegmentResolver creates a new segment resolver
func NewSegmentResolver(
	orderRepo repository.OrderRepository,
	contactRepo repository.ContactRepository,
	addressRepo repository.BuyerAddressRepository,
	preferenceRepo repository.CustomerPreferenceRepository,
	businessRepo repository.BusinessRepository,
	cfg config.CampaignConfig,
) *SegmentResolverImpl {
	return &SegmentResolverImpl{
		orderRepo:      orderRepo,
		contactRepo:    contactRepo,
		addressRepo:    addressRepo,
		preferenceRepo: preferenceRepo,
		businessRepo:   businessRepo,
		cfg:            withCampaignDefaults(cfg),
		now:            utils.UTCNow,
	}
}

// Resolve returns the deduplicated recipients for the campaign ordered by contact id.
// Any read failure aborts the whole resolution.
func (r *SegmentResolverImpl) Resolve(ctx context.Context, campaign *models.Campaign) ([]models.Recipient, error) {
	var (
		userIDs      []string
		fallbackName string
		err          error
	)

	switch campaign.TargetAudience {
	case models.TargetAudienceAll:
		fallbackName = utils.DefaultCustomerName
		userIDs, err = r.orderRepo.DistinctUserIDs(ctx)
	case models.TargetAudienceCustomers:
		fallbackName = utils.DefaultCustomerName
		userIDs, err = r.customerUserIDs(ctx, campaign.CustomerSegment)
	case models.TargetAudienceSellers:
		fallbackName = utils.DefaultSellerName
		userIDs, err = r.businessRepo.OwnerUserIDs(ctx)
	default:
		return nil, NewBusinessErrorf("INVALID_TARGET_AUDIENCE", "Unsupported target audience %q", ErrInvalidTargetAudience, campaign.TargetAudience)
	}
	if err != nil {
		return nil, resolutionError(err)
	}

	recipients, err := r.toRecipients(ctx, newUserIDSet(userIDs).sorted(), fallbackName)
	if err != nil {
		return nil, resolutionError(err)
	}
	return recipients, nil
}

// customerUserIDs applies the order-history bucket then narrows by location, registration date and opt-in
func (r *SegmentResolverImpl) customerUserIDs(ctx context.Context, segment models.CustomerSegment) ([]string, error) {
	candidates, err := r.baseCustomerSet(ctx, segment.OrderHistory.Normalize())
	if err != nil {
		return nil, err
	}

	if locations := cleanLocations(segment.Location); len(locations) > 0 && len(candidates) > 0 {
		byBilling, err := r.orderRepo.UserIDsByBillingLocation(ctx, locations)
		if err != nil {
			return nil, fmt.Errorf("billing location lookup: %w", err)
		}
		byAddress, err := r.addressRepo.UserIDsByLocation(ctx, locations)
		if err != nil {
			return nil, fmt.Errorf("address location lookup: %w", err)
		}
		inLocation := newUserIDSet(byBilling).union(newUserIDSet(byAddress))
		candidates = candidates.intersect(inLocation)
	}

	if rng := segment.RegistrationDate; !rng.IsEmpty() && len(candidates) > 0 {
		registered, err := r.contactRepo.UserIDsRegisteredBetween(ctx, candidates.sorted(), rng.From, rng.To)
		if err != nil {
			return nil, fmt.Errorf("registration date lookup: %w", err)
		}
		candidates = candidates.intersect(newUserIDSet(registered))
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	optedIn, err := r.preferenceRepo.OptedInUserIDs(ctx, candidates.sorted())
	if err != nil {
		return nil, fmt.Errorf("marketing preference lookup: %w", err)
	}
	return candidates.intersect(newUserIDSet(optedIn)).sorted(), nil
}

func (r *SegmentResolverImpl) baseCustomerSet(ctx context.Context, bucket models.OrderHistoryBucket) (userIDSet, error) {
	var (
		ids []string
		err error
	)
	switch bucket {
	case models.OrderHistoryNoOrders:
		var contacts, buyers []string
		contacts, err = r.contactRepo.AllUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("contact lookup: %w", err)
		}
		buyers, err = r.orderRepo.DistinctUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("order lookup: %w", err)
		}
		return newUserIDSet(contacts).minus(newUserIDSet(buyers)), nil
	case models.OrderHistoryRecentOrders:
		ids, err = r.orderRepo.UserIDsOrderedSince(ctx, r.now().Add(-r.cfg.RecentOrdersWindow))
	case models.OrderHistoryHighValue:
		ids, err = r.orderRepo.UserIDsWithTotalAtLeast(ctx, r.cfg.HighValueOrderTotal)
	case models.OrderHistoryFrequentBuyers:
		ids, err = r.orderRepo.UserIDsWithOrderCountAtLeast(ctx, r.cfg.FrequentBuyerMinOrders)
	default:
		ids, err = r.orderRepo.DistinctUserIDs(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("order history lookup (%s): %w", bucket, err)
	}
	return newUserIDSet(ids), nil
}

// toRecipients loads contacts for userIDs; users without a contact row are dropped
func (r *SegmentResolverImpl) toRecipients(ctx context.Context, userIDs []string, fallbackName string) ([]models.Recipient, error) {
	if len(userIDs) == 0 {
		return []models.Recipient{}, nil
	}
	contacts, err := r.contactRepo.ByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("contact lookup: %w", err)
	}
	slices.SortFunc(contacts, func(a, b *models.Contact) int {
		return cmp.Compare(a.ID, b.ID)
	})

	seen := make(userIDSet, len(contacts))
	recipients := make([]models.Recipient, 0, len(contacts))
	for _, c := range contacts {
		if seen.has(c.UserID) {
			continue
		}
		seen.add(c.UserID)

		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = fallbackName
		}
		recipients = append(recipients, models.Recipient{
			UserID: c.UserID,
			Phone:  strings.TrimSpace(c.Phone),
			Name:   name,
			Email:  c.Email,
		})
	}
	return recipients, nil
}

func resolutionError(err error) error {
	return NewBusinessError("SEGMENT_RESOLUTION_FAILED", "Failed to resolve campaign audience", fmt.Errorf("%w: %w", ErrSegmentResolutionFailed, err))
}

func cleanLocations(locations []string) []string {
	out := make([]string, 0, len(locations))
	for _, l := range locations {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// withCampaignDefaults fills unset thresholds with the package defaults
func withCampaignDefaults(cfg config.CampaignConfig) config.CampaignConfig {
	if cfg.MinPhoneLength <= 0 {
		cfg.MinPhoneLength = utils.MinRecipientPhoneLength
	}
	if cfg.RecentOrdersWindow <= 0 {
		cfg.RecentOrdersWindow = utils.RecentOrdersWindow
	}
	if cfg.HighValueOrderTotal <= 0 {
		cfg.HighValueOrderTotal = utils.HighValueOrderTotal
	}
	if cfg.FrequentBuyerMinOrders <= 0 {
		cfg.FrequentBuyerMinOrders = utils.FrequentBuyerMinOrders
	}
	if cfg.PremiumTierThreshold <= 0 {
		cfg.PremiumTierThreshold = utils.PremiumTierThreshold
	}
	if cfg.GoldTierThreshold <= 0 {
		cfg.GoldTierThreshold = utils.GoldTierThreshold
	}
	if cfg.CurrencySymbol == "" {
		cfg.CurrencySymbol = utils.DefaultCurrencySymbol
	}
	if cfg.StatusMode == "" {
		cfg.StatusMode = config.CampaignStatusModeStaged
	}
	return cfg
}

// userIDSet is a set of storefront user ids
type userIDSet map[string]struct{}

func newUserIDSet(ids []string) userIDSet {
	s := make(userIDSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s userIDSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s userIDSet) add(id string) {
	s[id] = struct{}{}
}

func (s userIDSet) intersect(other userIDSet) userIDSet {
	out := make(userIDSet)
	for id := range s {
		if other.has(id) {
			out.add(id)
		}
	}
	return out
}

func (s userIDSet) union(other userIDSet) userIDSet {
	out := make(userIDSet, len(s)+len(other))
	for id := range s {
		out.add(id)
	}
	for id := range other {
		out.add(id)
	}
	return out
}

func (s userIDSet) minus(other userIDSet) userIDSet {
	out := make(userIDSet)
	for id := range s {
		if !other.has(id) {
			out.add(id)
		}
	}
	return out
}

func (s userIDSet) sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
