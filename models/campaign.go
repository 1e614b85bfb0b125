package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/storefront-campaigns/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignStatus represents the lifecycle status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusSent      CampaignStatus = "sent"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusScheduled,
		CampaignStatusSending, CampaignStatusSent:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// TargetAudience is the coarse recipient category of a campaign
type TargetAudience string

const (
	TargetAudienceAll       TargetAudience = "all"
	TargetAudienceCustomers TargetAudience = "customers"
	TargetAudienceSellers   TargetAudience = "sellers"
)

func (t TargetAudience) String() string {
	return string(t)
}

func (t TargetAudience) Valid() bool {
	switch t {
	case TargetAudienceAll, TargetAudienceCustomers, TargetAudienceSellers:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for TargetAudience
func (t *TargetAudience) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = TargetAudience(v)
	case []byte:
		*t = TargetAudience(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TargetAudience", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for TargetAudience
func (t TargetAudience) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid TargetAudience: %s", t)
	}
	return string(t), nil
}

// OrderHistoryBucket selects the base candidate set in customers mode
type OrderHistoryBucket string

const (
	OrderHistoryHasOrders      OrderHistoryBucket = "has_orders"
	OrderHistoryNoOrders       OrderHistoryBucket = "no_orders"
	OrderHistoryRecentOrders   OrderHistoryBucket = "recent_orders"
	OrderHistoryHighValue      OrderHistoryBucket = "high_value"
	OrderHistoryFrequentBuyers OrderHistoryBucket = "frequent_buyers"
)

// Normalize maps empty and unrecognized buckets to has_orders
func (b OrderHistoryBucket) Normalize() OrderHistoryBucket {
	switch b {
	case OrderHistoryNoOrders, OrderHistoryRecentOrders,
		OrderHistoryHighValue, OrderHistoryFrequentBuyers:
		return b
	default:
		return OrderHistoryHasOrders
	}
}

// DateRange is an inclusive range where either bound may be absent
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// IsEmpty reports whether neither bound is set
func (r *DateRange) IsEmpty() bool {
	return r == nil || (r.From == nil && r.To == nil)
}

// CustomerSegment narrows the customers audience
type CustomerSegment struct {
	OrderHistory     OrderHistoryBucket `json:"order_history,omitempty"`
	Location         []string           `json:"location,omitempty"`
	RegistrationDate *DateRange         `json:"registration_date,omitempty"`
}

// Value implements the driver.Valuer interface for CustomerSegment
func (s CustomerSegment) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for CustomerSegment
func (s *CustomerSegment) Scan(value any) error {
	if value == nil {
		*s = CustomerSegment{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CustomerSegment", value)
	}

	return json.Unmarshal(bytes, s)
}

// Campaign is a WhatsApp marketing blast definition
type Campaign struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	Title           string          `gorm:"size:255;not null" json:"title"`
	TargetAudience  TargetAudience  `gorm:"type:campaign_target_audience;not null;default:'all'" json:"target_audience"`
	CustomerSegment CustomerSegment `gorm:"type:jsonb;not null;default:'{}'" json:"customer_segment"`
	Message         string          `gorm:"type:text;not null" json:"message"`
	Status          CampaignStatus  `gorm:"type:campaign_status;not null;default:'draft';index:idx_campaigns_status" json:"status"`
	TotalRecipients int             `gorm:"not null;default:0" json:"total_recipients"`
	SentCount       int             `gorm:"not null;default:0" json:"sent_count"`
	DeliveredCount  int             `gorm:"not null;default:0" json:"delivered_count"`
	FailedCount     int             `gorm:"not null;default:0" json:"failed_count"`
	SentAt          *time.Time      `json:"sent_at,omitempty"`
	CreatedBy       string          `gorm:"size:64" json:"created_by"`
	CreatedAt       time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.TargetAudience == "" {
		c.TargetAudience = TargetAudienceAll
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// CampaignStatistics carries the counters written when a dispatch finishes
type CampaignStatistics struct {
	TotalRecipients int
	SentCount       int
	DeliveredCount  int
	FailedCount     int
	SentAt          time.Time
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID             *uint           `json:"id,omitempty"`
	UUID           *uuid.UUID      `json:"uuid,omitempty"`
	Status         *CampaignStatus `json:"status,omitempty"`
	TargetAudience *TargetAudience `json:"target_audience,omitempty"`
	Title          *string         `json:"title,omitempty"`
	CreatedBy      *string         `json:"created_by,omitempty"`
	CreatedAfter   *time.Time      `json:"created_after,omitempty"`
	CreatedBefore  *time.Time      `json:"created_before,omitempty"`
}
