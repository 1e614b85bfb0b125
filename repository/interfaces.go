// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/storefront-campaigns/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ClaimForDispatch(ctx context.Context, id uint, status models.CampaignStatus) (bool, error)
	UpdateStatistics(ctx context.Context, id uint, status models.CampaignStatus, stats models.CampaignStatistics) error
}

// CampaignLogRepository defines operations for campaign delivery logs
type CampaignLogRepository interface {
	Repository[models.CampaignLog, models.CampaignLogFilter]
	CountByStatus(ctx context.Context, campaignID uint) (map[models.CampaignLogStatus]int64, error)
}

// OrderRepository exposes the order aggregates used for segmentation and enrichment
type OrderRepository interface {
	DistinctUserIDs(ctx context.Context) ([]string, error)
	UserIDsOrderedSince(ctx context.Context, since time.Time) ([]string, error)
	UserIDsWithTotalAtLeast(ctx context.Context, minTotal float64) ([]string, error)
	UserIDsWithOrderCountAtLeast(ctx context.Context, minOrders int) ([]string, error)
	UserIDsByBillingLocation(ctx context.Context, locations []string) ([]string, error)
	LatestByUser(ctx context.Context, userID string) (*models.Order, error)
	StatsByUser(ctx context.Context, userID string) (*models.OrderStats, error)
}

// ContactRepository defines read operations over storefront contacts
type ContactRepository interface {
	AllUserIDs(ctx context.Context) ([]string, error)
	UserIDsRegisteredBetween(ctx context.Context, userIDs []string, from, to *time.Time) ([]string, error)
	ByUserIDs(ctx context.Context, userIDs []string) ([]*models.Contact, error)
}

// BuyerAddressRepository defines read operations over saved shipping addresses
type BuyerAddressRepository interface {
	UserIDsByLocation(ctx context.Context, locations []string) ([]string, error)
}

// CustomerPreferenceRepository defines read operations over communication preferences
type CustomerPreferenceRepository interface {
	OptedInUserIDs(ctx context.Context, userIDs []string) ([]string, error)
}

// BusinessRepository defines read operations over seller businesses
type BusinessRepository interface {
	OwnerUserIDs(ctx context.Context) ([]string, error)
}
