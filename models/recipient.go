package models

import (
	"time"
	"unicode/utf8"
)

// CustomerTier is a spend-based customer classification
type CustomerTier string

const (
	CustomerTierPremium CustomerTier = "Premium"
	CustomerTierGold    CustomerTier = "Gold"
	CustomerTierSilver  CustomerTier = "Silver"
)

// TierForSpend classifies lifetime spend. Thresholds are strict lower bounds.
func TierForSpend(totalSpent, premiumAbove, goldAbove float64) CustomerTier {
	switch {
	case totalSpent > premiumAbove:
		return CustomerTierPremium
	case totalSpent > goldAbove:
		return CustomerTierGold
	default:
		return CustomerTierSilver
	}
}

// Recipient is a resolved contact for one dispatch run. It is never persisted.
// Enrichment fields stay nil when unknown.
type Recipient struct {
	UserID string `json:"user_id"`
	Phone  string `json:"phone"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`

	Tier              *CustomerTier `json:"tier,omitempty"`
	TotalOrders       *int64        `json:"total_orders,omitempty"`
	TotalSpent        *float64      `json:"total_spent,omitempty"`
	AverageOrderValue *float64      `json:"average_order_value,omitempty"`
	LastOrderAmount   *float64      `json:"last_order_amount,omitempty"`
	LastOrderDate     *time.Time    `json:"last_order_date,omitempty"`
	PreferredProducts []string      `json:"preferred_products,omitempty"`
}

// HasPhone reports whether the phone number is at least minLen characters long
func (r Recipient) HasPhone(minLen int) bool {
	return utf8.RuneCountInString(r.Phone) >= minLen
}
