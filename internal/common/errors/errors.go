// Package errors provides standardized error handling for the action engine.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeIntentParsingFailed ErrorCode = "INTENT_PARSING_FAILED"
	ErrCodeIntentAPITimeout    ErrorCode = "INTENT_API_TIMEOUT"

	ErrCodeDispatchTransportFailed   ErrorCode = "DISPATCH_TRANSPORT_FAILED"
	ErrCodeDispatchTimeout           ErrorCode = "DISPATCH_TIMEOUT"
	ErrCodeDispatchBadStatus         ErrorCode = "DISPATCH_BAD_STATUS"
	ErrCodeDispatchMalformedResponse ErrorCode = "DISPATCH_MALFORMED_RESPONSE"
	ErrCodePreviewFailed             ErrorCode = "PREVIEW_FAILED"

	ErrCodePlannerFailed ErrorCode = "PLANNER_FAILED"

	ErrCodePendingStoreFailed ErrorCode = "PENDING_STORE_FAILED"
	ErrCodeConversationBusy   ErrorCode = "CONVERSATION_BUSY"
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCodeNoPendingAction    ErrorCode = "NO_PENDING_ACTION"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches another StandardError by code so sentinel values work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrIntentParsingFailed = &StandardError{Code: ErrCodeIntentParsingFailed}
	ErrIntentAPITimeout    = &StandardError{Code: ErrCodeIntentAPITimeout}
	ErrDispatchTransport   = &StandardError{Code: ErrCodeDispatchTransportFailed}
	ErrDispatchTimeout     = &StandardError{Code: ErrCodeDispatchTimeout}
	ErrDispatchBadStatus   = &StandardError{Code: ErrCodeDispatchBadStatus}
	ErrDispatchMalformed   = &StandardError{Code: ErrCodeDispatchMalformedResponse}
	ErrPreviewFailed       = &StandardError{Code: ErrCodePreviewFailed}
	ErrPlannerFailed       = &StandardError{Code: ErrCodePlannerFailed}
	ErrPendingStoreFailed  = &StandardError{Code: ErrCodePendingStoreFailed}
	ErrConversationBusy    = &StandardError{Code: ErrCodeConversationBusy}
	ErrInvalidRequest      = &StandardError{Code: ErrCodeInvalidRequest}
	ErrNoPendingAction     = &StandardError{Code: ErrCodeNoPendingAction}
)

// NewIntentParsingFailedError creates a retryable intent parsing error.
func NewIntentParsingFailedError(err error) *StandardError {
	return newError(ErrCodeIntentParsingFailed, "Intent classification API error", err.Error(), true)
}

// NewIntentAPITimeoutError creates a retryable intent API timeout error.
func NewIntentAPITimeoutError() *StandardError {
	return newError(ErrCodeIntentAPITimeout, "Intent classification API timeout", "API call exceeded timeout threshold", true)
}

func NewDispatchTransportError(err error) *StandardError {
	return newError(ErrCodeDispatchTransportFailed, "Could not reach the action service", err.Error(), true)
}

func NewDispatchTimeoutError() *StandardError {
	return newError(ErrCodeDispatchTimeout, "The action service did not respond in time", "API call exceeded timeout threshold", true)
}

func NewDispatchBadStatusError(status int, body string) *StandardError {
	return newError(ErrCodeDispatchBadStatus,
		fmt.Sprintf("The action service returned status %d", status),
		truncate(body, 256), status >= 500)
}

func NewDispatchMalformedError(err error) *StandardError {
	return newError(ErrCodeDispatchMalformedResponse, "The action service returned an unreadable response", err.Error(), false)
}

func NewPreviewFailedError(err error) *StandardError {
	return newError(ErrCodePreviewFailed, "Action preview unavailable", err.Error(), true)
}

func NewPlannerFailedError(err error) *StandardError {
	return newError(ErrCodePlannerFailed, "Conversational reply unavailable", err.Error(), true)
}

func NewPendingStoreError(op string, err error) *StandardError {
	return newError(ErrCodePendingStoreFailed, "Pending action store error", fmt.Sprintf("op: %s, error: %s", op, err.Error()), true)
}

func NewConversationBusyError(conversationID string) *StandardError {
	return newError(ErrCodeConversationBusy, "Another command is still running for this conversation",
		fmt.Sprintf("conversationId: %s", conversationID), true)
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, false)
}

func NewNoPendingActionError(conversationID string) *StandardError {
	return newError(ErrCodeNoPendingAction, "No pending action for this conversation",
		fmt.Sprintf("conversationId: %s", conversationID), false)
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// HTTPStatus maps an error code to the status returned by the service API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeNoPendingAction:
		return http.StatusNotFound
	case ErrCodeConversationBusy:
		return http.StatusConflict
	case ErrCodePendingStoreFailed, ErrCodePreviewFailed, ErrCodePlannerFailed:
		return http.StatusServiceUnavailable
	case ErrCodeDispatchTransportFailed, ErrCodeDispatchBadStatus, ErrCodeDispatchMalformedResponse:
		return http.StatusBadGateway
	case ErrCodeDispatchTimeout, ErrCodeIntentAPITimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns the recommended job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePendingStoreFailed,
		ErrCodeIntentParsingFailed,
		ErrCodePlannerFailed:
		return 3

	case ErrCodeIntentAPITimeout,
		ErrCodeConversationBusy:
		return 2

	default:
		// dispatch failures are reported, never retried
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INTENT") || strings.HasPrefix(codeStr, "PLANNER"):
		return "AI"
	case strings.HasPrefix(codeStr, "DISPATCH") || strings.HasPrefix(codeStr, "PREVIEW"):
		return "DISPATCH"
	case strings.HasPrefix(codeStr, "PENDING") || strings.HasPrefix(codeStr, "CONVERSATION") || strings.HasPrefix(codeStr, "NO_PENDING"):
		return "CONVERSATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
