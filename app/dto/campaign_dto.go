package dto

// DispatchCampaignRequest represents the request to send a campaign to its audience.
// LegacyCampaignID accepts the snake_case key older admin clients send.
type DispatchCampaignRequest struct {
	CampaignID       string `json:"campaignId" validate:"required,uuid"`
	LegacyCampaignID string `json:"campaign_id,omitempty" validate:"-"`
}

// Normalize folds the snake_case id into CampaignID when campaignId is absent
func (r *DispatchCampaignRequest) Normalize() {
	if r.CampaignID == "" {
		r.CampaignID = r.LegacyCampaignID
	}
	r.LegacyCampaignID = ""
}

// DispatchSegmentDTO mirrors CustomerSegmentDTO with the dispatch endpoint's camelCase keys
type DispatchSegmentDTO struct {
	OrderHistory     string        `json:"orderHistory,omitempty"`
	Location         []string      `json:"location,omitempty"`
	RegistrationDate *DateRangeDTO `json:"registrationDate,omitempty"`
}

// SegmentationCriteria echoes the targeting the dispatch was resolved with
type SegmentationCriteria struct {
	TargetAudience  string             `json:"targetAudience"`
	CustomerSegment DispatchSegmentDTO `json:"customerSegment"`
}

// DispatchCampaignResponse represents the outcome of a dispatch run
type DispatchCampaignResponse struct {
	Success              bool                 `json:"success"`
	CampaignID           string               `json:"campaignId"`
	TotalRecipients      int                  `json:"totalRecipients"`
	SentCount            int                  `json:"sentCount"`
	DeliveredCount       int                  `json:"deliveredCount"`
	FailedCount          int                  `json:"failedCount"`
	SegmentationCriteria SegmentationCriteria `json:"segmentationCriteria"`
}

// DateRangeDTO is an inclusive RFC3339 range with optional bounds
type DateRangeDTO struct {
	From *string `json:"from,omitempty"`
	To   *string `json:"to,omitempty"`
}

// CustomerSegmentDTO represents customers-mode narrowing criteria
type CustomerSegmentDTO struct {
	OrderHistory     string        `json:"order_history,omitempty"`
	Location         []string      `json:"location,omitempty"`
	RegistrationDate *DateRangeDTO `json:"registration_date,omitempty"`
}

// CampaignDTO represents a campaign in admin responses
type CampaignDTO struct {
	UUID            string             `json:"uuid"`
	Title           string             `json:"title"`
	TargetAudience  string             `json:"target_audience"`
	CustomerSegment CustomerSegmentDTO `json:"customer_segment"`
	Message         string             `json:"message"`
	Status          string             `json:"status"`
	TotalRecipients int                `json:"total_recipients"`
	SentCount       int                `json:"sent_count"`
	DeliveredCount  int                `json:"delivered_count"`
	FailedCount     int                `json:"failed_count"`
	SentAt          *string            `json:"sent_at,omitempty"`
	CreatedBy       string             `json:"created_by"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       *string            `json:"updated_at,omitempty"`
}

// ListCampaignsFilter represents filter criteria for listing campaigns in request layer
type ListCampaignsFilter struct {
	Title          *string `json:"title,omitempty"`
	Status         *string `json:"status,omitempty"`
	TargetAudience *string `json:"target_audience,omitempty"`
}

// ListCampaignsRequest represents a paginated list request for campaigns
type ListCampaignsRequest struct {
	Page    int                  `json:"page" query:"page"`
	Limit   int                  `json:"limit" query:"limit"`
	OrderBy string               `json:"orderby" query:"orderby"` // newest, oldest
	Filter  *ListCampaignsFilter `json:"filter,omitempty"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// ListCampaignsResponse represents a paginated list of campaigns
type ListCampaignsResponse struct {
	Message    string         `json:"message"`
	Items      []CampaignDTO  `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// GetCampaignResponse wraps a single campaign
type GetCampaignResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// AudiencePreviewResponse summarizes who a dispatch would reach right now
type AudiencePreviewResponse struct {
	CampaignID         string   `json:"campaign_id"`
	TargetAudience     string   `json:"target_audience"`
	TotalCandidates    int      `json:"total_candidates"`
	EligibleRecipients int      `json:"eligible_recipients"`
	Sample             []string `json:"sample"`
	Cached             bool     `json:"cached"`
}

// CampaignLogDTO represents one delivery attempt
type CampaignLogDTO struct {
	UUID          string  `json:"uuid"`
	UserID        string  `json:"user_id"`
	Phone         string  `json:"phone"`
	RecipientName string  `json:"recipient_name"`
	Message       string  `json:"message"`
	Status        string  `json:"status"`
	ErrorMessage  *string `json:"error_message,omitempty"`
	SentAt        *string `json:"sent_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// ListCampaignLogsRequest represents a paginated log listing for one campaign
type ListCampaignLogsRequest struct {
	CampaignUUID string  `json:"-"`
	Status       *string `json:"status,omitempty" query:"status"`
	Page         int     `json:"page" query:"page"`
	PageSize     int     `json:"page_size" query:"page_size"`
}

// ListCampaignLogsResponse represents a page of campaign logs
type ListCampaignLogsResponse struct {
	Message    string           `json:"message"`
	Items      []CampaignLogDTO `json:"items"`
	Pagination PaginationInfo   `json:"pagination"`
}
