package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/amirphl/storefront-campaigns/config"
	"github.com/amirphl/storefront-campaigns/utils"
)

const (
	maxWhatsAppResponseBytes  = 1 << 20
	whatsAppErrorSnippetBytes = 200
)

// WhatsAppService sends marketing messages through the WhatsApp Business API
type WhatsAppService interface {
	// SendMarketingMessage reports whether the provider accepted the message
	SendMarketingMessage(ctx context.Context, phone, name, body string) (bool, error)
}

// WhatsAppServiceImpl implements WhatsAppService against the Cloud API
type WhatsAppServiceImpl struct {
	config *config.WhatsAppConfig
	client *http.Client
}

// WhatsAppMessageRequest is the Cloud API send-message payload
type WhatsAppMessageRequest struct {
	MessagingProduct string            `json:"messaging_product"`
	RecipientType    string            `json:"recipient_type"`
	To               string            `json:"to"`
	Type             string            `json:"type"`
	Text             *WhatsAppText     `json:"text,omitempty"`
	Template         *WhatsAppTemplate `json:"template,omitempty"`
}

type WhatsAppText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type WhatsAppTemplate struct {
	Name       string                      `json:"name"`
	Language   WhatsAppTemplateLanguage    `json:"language"`
	Components []WhatsAppTemplateComponent `json:"components,omitempty"`
}

type WhatsAppTemplateLanguage struct {
	Code string `json:"code"`
}

type WhatsAppTemplateComponent struct {
	Type       string                      `json:"type"`
	Parameters []WhatsAppTemplateParameter `json:"parameters"`
}

type WhatsAppTemplateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// WhatsAppMessageResponse is the Cloud API response for both success and error
type WhatsAppMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// NewWhatsAppService creates a new WhatsApp Cloud API client
func NewWhatsAppService(cfg *config.WhatsAppConfig) WhatsAppService {
	return &WhatsAppServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendMarketingMessage sends body to phone. When a template is configured the name and
// body are passed as the template's body parameters, otherwise a plain text message is sent.
func (s *WhatsAppServiceImpl) SendMarketingMessage(ctx context.Context, phone, name, body string) (bool, error) {
	payload := WhatsAppMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               normalizeWhatsAppNumber(phone),
	}
	if s.config.TemplateName != "" {
		payload.Type = "template"
		payload.Template = &WhatsAppTemplate{
			Name:     s.config.TemplateName,
			Language: WhatsAppTemplateLanguage{Code: s.config.TemplateLanguage},
			Components: []WhatsAppTemplateComponent{{
				Type: "body",
				Parameters: []WhatsAppTemplateParameter{
					{Type: "text", Text: name},
					{Type: "text", Text: body},
				},
			}},
		}
	} else {
		payload.Type = "text"
		payload.Text = &WhatsAppText{Body: body}
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal WhatsApp request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", strings.TrimRight(s.config.APIBaseURL, "/"), s.config.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return false, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.AccessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send WhatsApp message: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxWhatsAppResponseBytes))
	if err != nil {
		return false, fmt.Errorf("failed to read WhatsApp response (status %d): %w", resp.StatusCode, err)
	}

	var result WhatsAppMessageResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// gateways in front of the API answer with HTML or plain text
		if json.Unmarshal(raw, &result) == nil && result.Error != nil {
			return false, fmt.Errorf("WhatsApp API error %d (code %d): %s", resp.StatusCode, result.Error.Code, result.Error.Message)
		}
		return false, fmt.Errorf("WhatsApp API returned status %d: %s", resp.StatusCode, snippet(raw))
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return false, fmt.Errorf("failed to decode WhatsApp response (status %d): %w", resp.StatusCode, err)
	}

	return len(result.Messages) > 0, nil
}

// snippet trims a provider body for inclusion in an error
func snippet(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if len(text) > whatsAppErrorSnippetBytes {
		text = text[:whatsAppErrorSnippetBytes] + "..."
	}
	return text
}

// normalizeWhatsAppNumber strips everything but digits; the Cloud API expects E.164 without '+'
func normalizeWhatsAppNumber(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MockWhatsAppService implements WhatsAppService for development and tests
type MockWhatsAppService struct {
	SentMessages []MockWhatsAppMessage
	// FailPhones makes sends to these numbers report failure
	FailPhones map[string]bool
}

// MockWhatsAppMessage represents a recorded mock message
type MockWhatsAppMessage struct {
	Phone  string
	Name   string
	Body   string
	SentAt time.Time
}

// NewMockWhatsAppService creates a new mock WhatsApp service
func NewMockWhatsAppService() *MockWhatsAppService {
	return &MockWhatsAppService{
		SentMessages: make([]MockWhatsAppMessage, 0),
		FailPhones:   make(map[string]bool),
	}
}

func (m *MockWhatsAppService) SendMarketingMessage(ctx context.Context, phone, name, body string) (bool, error) {
	if m.FailPhones[phone] {
		return false, nil
	}
	msg := MockWhatsAppMessage{
		Phone:  phone,
		Name:   name,
		Body:   body,
		SentAt: utils.UTCNow(),
	}
	log.Printf("Mock WhatsApp message sent to %s", utils.MaskPhone(phone))
	m.SentMessages = append(m.SentMessages, msg)
	return true, nil
}

// GetSentMessages returns all sent mock messages
func (m *MockWhatsAppService) GetSentMessages() []MockWhatsAppMessage {
	return m.SentMessages
}

// ClearSentMessages clears the sent messages list
func (m *MockWhatsAppService) ClearSentMessages() {
	m.SentMessages = make([]MockWhatsAppMessage, 0)
}
