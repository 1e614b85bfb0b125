package models

import "time"

// Contact is a storefront user's reachable identity. CreatedAt is the registration time.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:uk_contacts_user_id" json:"user_id"`
	Name      string    `gorm:"size:255" json:"name"`
	Phone     string    `gorm:"size:32" json:"phone"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `gorm:"not null;index:idx_contacts_created_at" json:"created_at"`
}

func (Contact) TableName() string { return "contacts" }

// BuyerAddress is a saved shipping address
type BuyerAddress struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;index:idx_buyer_addresses_user_id" json:"user_id"`
	State     string    `gorm:"size:128;index:idx_buyer_addresses_state" json:"state"`
	City      string    `gorm:"size:128;index:idx_buyer_addresses_city" json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

func (BuyerAddress) TableName() string { return "buyer_addresses" }

// CustomerPreference holds a user's communication preferences
type CustomerPreference struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         string     `gorm:"size:64;not null;uniqueIndex:uk_customer_preferences_user_id" json:"user_id"`
	MarketingOptIn bool       `gorm:"not null;default:false" json:"marketing_opt_in"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func (CustomerPreference) TableName() string { return "customer_preferences" }

// Business is a registered seller business
type Business struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerUserID string    `gorm:"size:64;not null;index:idx_businesses_owner_user_id" json:"owner_user_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Business) TableName() string { return "businesses" }
