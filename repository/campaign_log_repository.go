package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/storefront-campaigns/models"
	"gorm.io/gorm"
)

// CampaignLogRepositoryImpl implements CampaignLogRepository
type CampaignLogRepositoryImpl struct {
	*BaseRepository[models.CampaignLog, models.CampaignLogFilter]
}

func NewCampaignLogRepository(db *gorm.DB) CampaignLogRepository {
	return &CampaignLogRepositoryImpl{BaseRepository: NewBaseRepository[models.CampaignLog, models.CampaignLogFilter](db)}
}

func (r *CampaignLogRepositoryImpl) applyFilter(db *gorm.DB, f models.CampaignLogFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}
	if f.Phone != nil {
		db = db.Where("phone = ?", *f.Phone)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *CampaignLogRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignLogFilter, orderBy string, limit, offset int) ([]*models.CampaignLog, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.CampaignLog{}), filter), orderBy, limit, offset)

	var rows []*models.CampaignLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find campaign logs: %w", err)
	}
	return rows, nil
}

func (r *CampaignLogRepositoryImpl) Count(ctx context.Context, filter models.CampaignLogFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CampaignLog{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count campaign logs: %w", err)
	}
	return count, nil
}

func (r *CampaignLogRepositoryImpl) Exists(ctx context.Context, filter models.CampaignLogFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// CountByStatus groups a campaign's log rows by delivery status
func (r *CampaignLogRepositoryImpl) CountByStatus(ctx context.Context, campaignID uint) (map[models.CampaignLogStatus]int64, error) {
	db := r.getDB(ctx)

	type row struct {
		Status models.CampaignLogStatus
		Total  int64
	}
	var rows []row
	err := db.Model(&models.CampaignLog{}).
		Select("status, COUNT(*) AS total").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count campaign logs by status: %w", err)
	}

	out := make(map[models.CampaignLogStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}
