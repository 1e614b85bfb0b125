package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/storefront-campaigns/models"
	"gorm.io/gorm"
)

// ContactRepositoryImpl implements ContactRepository
type ContactRepositoryImpl struct {
	DB *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &ContactRepositoryImpl{DB: db}
}

// AllUserIDs returns the user id of every contact
func (r *ContactRepositoryImpl) AllUserIDs(ctx context.Context) ([]string, error) {
	ids, err := pluckUserIDs(txOr(ctx, r.DB).Model(&models.Contact{}), "user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list contact user ids: %w", err)
	}
	return ids, nil
}

// UserIDsRegisteredBetween keeps the given users whose contact was created within [from, to].
// A nil bound is open.
func (r *ContactRepositoryImpl) UserIDsRegisteredBetween(ctx context.Context, userIDs []string, from, to *time.Time) ([]string, error) {
	var out []string
	for _, chunk := range chunkStrings(userIDs, inClauseBatchSize) {
		query := txOr(ctx, r.DB).Model(&models.Contact{}).Where("user_id IN ?", chunk)
		if from != nil {
			query = query.Where("created_at >= ?", *from)
		}
		if to != nil {
			query = query.Where("created_at <= ?", *to)
		}
		ids, err := pluckUserIDs(query, "user_id")
		if err != nil {
			return nil, fmt.Errorf("failed to filter contacts by registration date: %w", err)
		}
		out = append(out, ids...)
	}
	return out, nil
}

// ByUserIDs loads contacts for the given users ordered by id
func (r *ContactRepositoryImpl) ByUserIDs(ctx context.Context, userIDs []string) ([]*models.Contact, error) {
	var out []*models.Contact
	for _, chunk := range chunkStrings(userIDs, inClauseBatchSize) {
		var rows []*models.Contact
		err := txOr(ctx, r.DB).
			Where("user_id IN ?", chunk).
			Order("id ASC").
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load contacts: %w", err)
		}
		out = append(out, rows...)
	}
	return out, nil
}
