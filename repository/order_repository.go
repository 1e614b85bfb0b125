package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/storefront-campaigns/models"
	"gorm.io/gorm"
)

// OrderRepositoryImpl implements OrderRepository over the storefront orders table
type OrderRepositoryImpl struct {
	*BaseRepository[models.Order, models.OrderFilter]
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &OrderRepositoryImpl{BaseRepository: NewBaseRepository[models.Order, models.OrderFilter](db)}
}

// DistinctUserIDs returns every user that has placed at least one order
func (r *OrderRepositoryImpl) DistinctUserIDs(ctx context.Context) ([]string, error) {
	db := r.getDB(ctx)
	ids, err := pluckUserIDs(db.Model(&models.Order{}).Distinct("user_id"), "user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list order user ids: %w", err)
	}
	return ids, nil
}

// UserIDsOrderedSince returns users with an order created at or after since
func (r *OrderRepositoryImpl) UserIDsOrderedSince(ctx context.Context, since time.Time) ([]string, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Order{}).
		Where("created_at >= ?", since).
		Distinct("user_id")
	ids, err := pluckUserIDs(query, "user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list recent order user ids: %w", err)
	}
	return ids, nil
}

// UserIDsWithTotalAtLeast returns users whose summed order totals reach minTotal
func (r *OrderRepositoryImpl) UserIDsWithTotalAtLeast(ctx context.Context, minTotal float64) ([]string, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Order{}).
		Select("user_id").
		Group("user_id").
		Having("SUM(total_amount) >= ?", minTotal)
	ids, err := pluckUserIDs(query, "user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list high value user ids: %w", err)
	}
	return ids, nil
}

// UserIDsWithOrderCountAtLeast returns users with at least minOrders orders
func (r *OrderRepositoryImpl) UserIDsWithOrderCountAtLeast(ctx context.Context, minOrders int) ([]string, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Order{}).
		Select("user_id").
		Group("user_id").
		Having("COUNT(*) >= ?", minOrders)
	ids, err := pluckUserIDs(query, "user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list frequent buyer user ids: %w", err)
	}
	return ids, nil
}

// UserIDsByBillingLocation matches order billing state or city against locations
func (r *OrderRepositoryImpl) UserIDsByBillingLocation(ctx context.Context, locations []string) ([]string, error) {
	if len(locations) == 0 {
		return nil, nil
	}
	db := r.getDB(ctx)
	query := db.Model(&models.Order{}).
		Where("billing_state IN ? OR billing_city IN ?", locations, locations).
		Distinct("user_id")
	ids, err := pluckUserIDs(query, "user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list order user ids by location: %w", err)
	}
	return ids, nil
}

// LatestByUser returns the user's most recent order, or nil when there is none
func (r *OrderRepositoryImpl) LatestByUser(ctx context.Context, userID string) (*models.Order, error) {
	db := r.getDB(ctx)

	var order models.Order
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest order for user %s: %w", userID, err)
	}
	return &order, nil
}

// StatsByUser aggregates count, sum and average over all of the user's orders
func (r *OrderRepositoryImpl) StatsByUser(ctx context.Context, userID string) (*models.OrderStats, error) {
	db := r.getDB(ctx)

	var stats models.OrderStats
	err := db.Model(&models.Order{}).
		Select("COUNT(*) AS total_orders, COALESCE(SUM(total_amount), 0) AS total_spent, COALESCE(AVG(total_amount), 0) AS average_order_value").
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders for user %s: %w", userID, err)
	}
	return &stats, nil
}
