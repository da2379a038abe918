// Package errors provides standardized error handling for the API and services.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Accounts
	ErrCodeEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrCodePhoneTaken         ErrorCode = "PHONE_TAKEN"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeAccountDisabled    ErrorCode = "ACCOUNT_DISABLED"
	ErrCodeTokenInvalid       ErrorCode = "TOKEN_INVALID"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"

	// Properties
	ErrCodePropertyNotFound  ErrorCode = "PROPERTY_NOT_FOUND"
	ErrCodePropertyNotOwned  ErrorCode = "PROPERTY_NOT_OWNED"
	ErrCodeInvalidDateRange  ErrorCode = "INVALID_DATE_RANGE"

	// Bookings
	ErrCodeBookingNotFound       ErrorCode = "BOOKING_NOT_FOUND"
	ErrCodeDatesUnavailable      ErrorCode = "DATES_UNAVAILABLE"
	ErrCodeCapacityExceeded      ErrorCode = "CAPACITY_EXCEEDED"
	ErrCodePromoInvalid          ErrorCode = "PROMO_INVALID"
	ErrCodePromoExpired          ErrorCode = "PROMO_EXPIRED"
	ErrCodeBookingNotCancellable ErrorCode = "BOOKING_NOT_CANCELLABLE"
	ErrCodeInvalidStatusChange   ErrorCode = "INVALID_STATUS_CHANGE"

	// Payments
	ErrCodePaymentInitFailed       ErrorCode = "PAYMENT_INIT_FAILED"
	ErrCodePaymentGatewayError     ErrorCode = "PAYMENT_GATEWAY_ERROR"
	ErrCodeTransactionNotFound     ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrCodeWebhookSignatureInvalid ErrorCode = "WEBHOOK_SIGNATURE_INVALID"
	ErrCodeWebhookPayloadInvalid   ErrorCode = "WEBHOOK_PAYLOAD_INVALID"
	ErrCodePayoutFailed            ErrorCode = "PAYOUT_FAILED"

	// Reviews / communications
	ErrCodeReviewExists         ErrorCode = "REVIEW_EXISTS"
	ErrCodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeNotParticipant       ErrorCode = "NOT_PARTICIPANT"

	// Generic
	ErrCodeValidationFailed         ErrorCode = "VALIDATION_FAILED"
	ErrCodeResourceNotFound         ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
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

// AsStandard extracts a *StandardError from err, or nil.
func AsStandard(err error) *StandardError {
	var se *StandardError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// ==========================
// Error Constructors
// ==========================

func New(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewEmailTakenError(email string) *StandardError {
	return New(ErrCodeEmailTaken, "Email address already registered", fmt.Sprintf("email: %s", email))
}

func NewPhoneTakenError(phone string) *StandardError {
	return New(ErrCodePhoneTaken, "Phone number already registered", fmt.Sprintf("phone: %s", phone))
}

func NewInvalidCredentialsError() *StandardError {
	return New(ErrCodeInvalidCredentials, "Invalid email or password", "")
}

func NewAccountDisabledError(userID string) *StandardError {
	return New(ErrCodeAccountDisabled, "Account is disabled", fmt.Sprintf("userId: %s", userID))
}

func NewTokenInvalidError(details string) *StandardError {
	return New(ErrCodeTokenInvalid, "Authentication token is invalid or expired", details)
}

func NewRateLimitedError() *StandardError {
	return New(ErrCodeRateLimited, "Too many attempts, retry later", "")
}

func NewForbiddenError(details string) *StandardError {
	return New(ErrCodeForbidden, "Operation not permitted", details)
}

func NewPropertyNotFoundError(propertyID string) *StandardError {
	return New(ErrCodePropertyNotFound, "Property not found", fmt.Sprintf("propertyId: %s", propertyID))
}

func NewInvalidDateRangeError(details string) *StandardError {
	return New(ErrCodeInvalidDateRange, "Invalid date range", details)
}

func NewBookingNotFoundError(bookingID string) *StandardError {
	return New(ErrCodeBookingNotFound, "Booking not found", fmt.Sprintf("bookingId: %s", bookingID))
}

func NewDatesUnavailableError(details string) *StandardError {
	return New(ErrCodeDatesUnavailable, "Property is not available for the requested dates", details)
}

func NewCapacityExceededError(capacity, requested int) *StandardError {
	return New(ErrCodeCapacityExceeded, "Guest count exceeds property capacity",
		fmt.Sprintf("capacity: %d, requested: %d", capacity, requested))
}

func NewPromoInvalidError(code string) *StandardError {
	return New(ErrCodePromoInvalid, "Promo code is not valid for this booking", fmt.Sprintf("code: %s", code))
}

func NewPromoExpiredError(code string) *StandardError {
	return New(ErrCodePromoExpired, "Promo code has expired", fmt.Sprintf("code: %s", code))
}

func NewBookingNotCancellableError(status string) *StandardError {
	return New(ErrCodeBookingNotCancellable, "Booking can no longer be cancelled", fmt.Sprintf("status: %s", status))
}

func NewInvalidStatusChangeError(from, to string) *StandardError {
	return New(ErrCodeInvalidStatusChange, "Status transition not allowed", fmt.Sprintf("%s -> %s", from, to))
}

func NewPaymentInitFailedError(err error) *StandardError {
	e := New(ErrCodePaymentInitFailed, "Payment initialization failed", err.Error())
	e.Retryable = true
	return e
}

func NewPaymentGatewayError(err error) *StandardError {
	e := New(ErrCodePaymentGatewayError, "Payment gateway error", err.Error())
	e.Retryable = true
	return e
}

func NewTransactionNotFoundError(reference string) *StandardError {
	return New(ErrCodeTransactionNotFound, "Transaction not found", fmt.Sprintf("reference: %s", reference))
}

func NewWebhookSignatureInvalidError() *StandardError {
	return New(ErrCodeWebhookSignatureInvalid, "Webhook signature verification failed", "")
}

func NewWebhookPayloadInvalidError(details string) *StandardError {
	return New(ErrCodeWebhookPayloadInvalid, "Webhook payload failed validation", details)
}

func NewPayoutFailedError(err error) *StandardError {
	e := New(ErrCodePayoutFailed, "Payout processing failed", err.Error())
	e.Retryable = true
	return e
}

func NewReviewExistsError(bookingID string) *StandardError {
	return New(ErrCodeReviewExists, "A review already exists for this booking", fmt.Sprintf("bookingId: %s", bookingID))
}

func NewConversationNotFoundError(conversationID string) *StandardError {
	return New(ErrCodeConversationNotFound, "Conversation not found", fmt.Sprintf("conversationId: %s", conversationID))
}

func NewNotParticipantError(userID string) *StandardError {
	return New(ErrCodeNotParticipant, "User is not a participant of this conversation", fmt.Sprintf("userId: %s", userID))
}

func NewValidationFailedError(details string) *StandardError {
	return New(ErrCodeValidationFailed, "Request validation failed", details)
}

func NewResourceNotFoundError(resource, details string) *StandardError {
	return New(ErrCodeResourceNotFound, fmt.Sprintf("%s not found", resource), details)
}

func NewQueryExecutionFailedError(err error) *StandardError {
	e := New(ErrCodeQueryExecutionFailed, "Database query execution error", err.Error())
	e.Retryable = true
	return e
}

func NewInternalError(err error) *StandardError {
	e := New(ErrCodeInternal, "Internal server error", err.Error())
	e.Retryable = true
	return e
}
