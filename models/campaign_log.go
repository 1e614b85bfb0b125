package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/amirphl/storefront-campaigns/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignLogStatus enumerates the delivery status of a campaign log row
type CampaignLogStatus string

const (
	CampaignLogStatusPending CampaignLogStatus = "pending"
	CampaignLogStatusSent    CampaignLogStatus = "sent"
	CampaignLogStatusFailed  CampaignLogStatus = "failed"
)

func (s CampaignLogStatus) String() string {
	return string(s)
}

func (s CampaignLogStatus) Valid() bool {
	switch s {
	case CampaignLogStatusPending, CampaignLogStatusSent, CampaignLogStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignLogStatus
func (s *CampaignLogStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignLogStatus(v)
	case []byte:
		*s = CampaignLogStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignLogStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignLogStatus
func (s CampaignLogStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignLogStatus: %s", s)
	}
	return string(s), nil
}

// CampaignLog records a single delivery attempt to one recipient
type CampaignLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uk_campaign_logs_uuid" json:"uuid"`
	CampaignID    uint              `gorm:"not null;index:idx_campaign_logs_campaign_id" json:"campaign_id"`
	UserID        string            `gorm:"size:64;not null;index:idx_campaign_logs_user_id" json:"user_id"`
	Phone         string            `gorm:"size:32;not null" json:"phone"`
	RecipientName string            `gorm:"size:255" json:"recipient_name"`
	Message       string            `gorm:"type:text;not null" json:"message"`
	Status        CampaignLogStatus `gorm:"type:campaign_log_status;not null;default:'pending';index:idx_campaign_logs_status" json:"status"`
	ErrorMessage  *string           `gorm:"type:text" json:"error_message,omitempty"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
	CreatedAt     time.Time         `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaign_logs_created_at" json:"created_at"`
}

func (CampaignLog) TableName() string { return "campaign_logs" }

// BeforeCreate is called before creating a new record
func (l *CampaignLog) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	if l.Status == "" {
		l.Status = CampaignLogStatusPending
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	return nil
}

// MarkSent transitions a pending log to sent
func (l *CampaignLog) MarkSent(at time.Time) {
	l.Status = CampaignLogStatusSent
	l.SentAt = &at
	l.ErrorMessage = nil
}

// MarkFailed transitions a pending log to failed with the given reason
func (l *CampaignLog) MarkFailed(reason string) {
	l.Status = CampaignLogStatusFailed
	l.ErrorMessage = &reason
}

// CampaignLogFilter provides filter fields for repository queries
type CampaignLogFilter struct {
	ID            *uint
	CampaignID    *uint
	UserID        *string
	Phone         *string
	Status        *CampaignLogStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
