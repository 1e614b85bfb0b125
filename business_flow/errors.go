// Package businessflow contains the core business logic and use cases for campaign dispatch
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Campaign-related errors
	ErrCampaignIDRequired         = errors.New("campaign id is required")
	ErrCampaignNotFound           = errors.New("campaign not found")
	ErrCampaignAlreadySent        = errors.New("campaign has already been sent")
	ErrCampaignDispatchInProgress = errors.New("campaign dispatch is already in progress")
	ErrInvalidTargetAudience      = errors.New("invalid target audience")

	// Audience errors
	ErrSegmentResolutionFailed = errors.New("failed to resolve campaign audience")
	ErrNoEligibleRecipients    = errors.New("no eligible recipients found")

	// Log errors
	ErrInvalidLogStatus = errors.New("invalid campaign log status")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCampaignIDRequired(err error) bool {
	return errors.Is(err, ErrCampaignIDRequired)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignAlreadySent(err error) bool {
	return errors.Is(err, ErrCampaignAlreadySent)
}

func IsCampaignDispatchInProgress(err error) bool {
	return errors.Is(err, ErrCampaignDispatchInProgress)
}

func IsInvalidTargetAudience(err error) bool {
	return errors.Is(err, ErrInvalidTargetAudience)
}

func IsSegmentResolutionFailed(err error) bool {
	return errors.Is(err, ErrSegmentResolutionFailed)
}

func IsNoEligibleRecipients(err error) bool {
	return errors.Is(err, ErrNoEligibleRecipients)
}

func IsInvalidLogStatus(err error) bool {
	return errors.Is(err, ErrInvalidLogStatus)
}
