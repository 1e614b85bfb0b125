package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/storefront-campaigns/models"
	"gorm.io/gorm"
)

// BuyerAddressRepositoryImpl implements BuyerAddressRepository
type BuyerAddressRepositoryImpl struct {
	DB *gorm.DB
}

func NewBuyerAddressRepository(db *gorm.DB) BuyerAddressRepository {
	return &BuyerAddressRepositoryImpl{DB: db}
}

// UserIDsByLocation matches saved address state or city against locations
func (r *BuyerAddressRepositoryImpl) UserIDsByLocation(ctx context.Context, locations []string) ([]string, error) {
	if len(locations) == 0 {
		return nil, nil
	}
	query := txOr(ctx, r.DB).Model(&models.BuyerAddress{}).
		Where("state IN ? OR city IN ?", locations, locations).
		Distinct("user_id")
	ids, err := pluckUserIDs(query, "user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list address user ids by location: %w", err)
	}
	return ids, nil
}

// CustomerPreferenceRepositoryImpl implements CustomerPreferenceRepository
type CustomerPreferenceRepositoryImpl struct {
	DB *gorm.DB
}

func NewCustomerPreferenceRepository(db *gorm.DB) CustomerPreferenceRepository {
	return &CustomerPreferenceRepositoryImpl{DB: db}
}

// OptedInUserIDs keeps the given users that have a preference row with marketing opt-in set
func (r *CustomerPreferenceRepositoryImpl) OptedInUserIDs(ctx context.Context, userIDs []string) ([]string, error) {
	var out []string
	for _, chunk := range chunkStrings(userIDs, inClauseBatchSize) {
		query := txOr(ctx, r.DB).Model(&models.CustomerPreference{}).
			Where("user_id IN ?", chunk).
			Where("marketing_opt_in = ?", true)
		ids, err := pluckUserIDs(query, "user_id")
		if err != nil {
			return nil, fmt.Errorf("failed to filter opted-in users: %w", err)
		}
		out = append(out, ids...)
	}
	return out, nil
}

// BusinessRepositoryImpl implements BusinessRepository
type BusinessRepositoryImpl struct {
	DB *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &BusinessRepositoryImpl{DB: db}
}

// OwnerUserIDs returns the distinct owners of registered businesses
func (r *BusinessRepositoryImpl) OwnerUserIDs(ctx context.Context) ([]string, error) {
	query := txOr(ctx, r.DB).Model(&models.Business{}).Distinct("owner_user_id")
	ids, err := pluckUserIDs(query, "owner_user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list business owner ids: %w", err)
	}
	return ids, nil
}

// txOr returns the transaction carried by ctx, falling back to db
func txOr(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return db
}
