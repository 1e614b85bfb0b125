package models

import (
	"time"

	"github.com/lib/pq"
)

// Order is a storefront order. The campaign service only reads it.
type Order struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        string         `gorm:"size:64;not null;index:idx_orders_user_id" json:"user_id"`
	TotalAmount   float64        `gorm:"type:numeric(14,2);not null;default:0" json:"total_amount"`
	BillingState  string         `gorm:"size:128;index:idx_orders_billing_state" json:"billing_state"`
	BillingCity   string         `gorm:"size:128;index:idx_orders_billing_city" json:"billing_city"`
	ProductTitles pq.StringArray `gorm:"type:text[]" json:"product_titles"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_orders_created_at" json:"created_at"`
}

func (Order) TableName() string { return "orders" }

// OrderStats aggregates a user's order history
type OrderStats struct {
	TotalOrders       int64   `gorm:"column:total_orders"`
	TotalSpent        float64 `gorm:"column:total_spent"`
	AverageOrderValue float64 `gorm:"column:average_order_value"`
}

// OrderFilter provides filter fields for repository queries
type OrderFilter struct {
	ID            *uint
	UserID        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
