package utils

import (
	"time"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Campaign dispatch defaults
const (
	// MinRecipientPhoneLength is the shortest phone number the dispatcher will message
	MinRecipientPhoneLength = 10

	// RecentOrdersWindow bounds the recent_orders bucket
	RecentOrdersWindow = 30 * 24 * time.Hour

	// HighValueOrderTotal is the lifetime spend that qualifies a user for high_value
	HighValueOrderTotal = 5000.0

	// FrequentBuyerMinOrders is the order count that qualifies a user for frequent_buyers
	FrequentBuyerMinOrders = 3

	// PremiumTierThreshold and GoldTierThreshold are strict lower bounds on total spend
	PremiumTierThreshold = 10000.0
	GoldTierThreshold    = 5000.0

	// MaxPreferredProducts caps product titles taken from the latest order
	MaxPreferredProducts = 2

	DefaultCurrencySymbol = "₹"

	DefaultCustomerName = "Customer"
	DefaultSellerName   = "Seller"

	// AudiencePreviewSampleSize is the number of masked phones returned by a preview
	AudiencePreviewSampleSize = 5
)

// Cache keys
const (
	AudiencePreviewCacheKey = "audience"
)
