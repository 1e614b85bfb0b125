// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/amirphl/storefront-campaigns/app/dto"
	"github.com/amirphl/storefront-campaigns/models"
)

// ClientMetadata holds the caller and request information attached to a flow invocation
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
	CallerID  string `json:"caller_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetCallerID sets the authenticated caller
func (cm *ClientMetadata) SetCallerID(callerID string) {
	cm.CallerID = callerID
}

// ToCampaignDTO converts a campaign model to its API representation
func ToCampaignDTO(c models.Campaign) dto.CampaignDTO {
	out := dto.CampaignDTO{
		UUID:            c.UUID.String(),
		Title:           c.Title,
		TargetAudience:  c.TargetAudience.String(),
		CustomerSegment: toSegmentDTO(c.CustomerSegment),
		Message:         c.Message,
		Status:          c.Status.String(),
		TotalRecipients: c.TotalRecipients,
		SentCount:       c.SentCount,
		DeliveredCount:  c.DeliveredCount,
		FailedCount:     c.FailedCount,
		CreatedBy:       c.CreatedBy,
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
	}
	out.SentAt = formatTimePtr(c.SentAt)
	out.UpdatedAt = formatTimePtr(c.UpdatedAt)
	return out
}

// ToCampaignLogDTO converts a campaign log model to its API representation
func ToCampaignLogDTO(l models.CampaignLog) dto.CampaignLogDTO {
	return dto.CampaignLogDTO{
		UUID:          l.UUID.String(),
		UserID:        l.UserID,
		Phone:         l.Phone,
		RecipientName: l.RecipientName,
		Message:       l.Message,
		Status:        l.Status.String(),
		ErrorMessage:  l.ErrorMessage,
		SentAt:        formatTimePtr(l.SentAt),
		CreatedAt:     l.CreatedAt.Format(time.RFC3339),
	}
}

func toSegmentDTO(s models.CustomerSegment) dto.CustomerSegmentDTO {
	out := dto.CustomerSegmentDTO{
		OrderHistory: string(s.OrderHistory),
		Location:     s.Location,
	}
	if s.RegistrationDate != nil {
		out.RegistrationDate = &dto.DateRangeDTO{
			From: formatTimePtr(s.RegistrationDate.From),
			To:   formatTimePtr(s.RegistrationDate.To),
		}
	}
	return out
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
