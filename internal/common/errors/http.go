package errors

import "net/http"

// HTTPStatus maps an error code to the HTTP status the API responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeEmailTaken, ErrCodePhoneTaken, ErrCodeReviewExists:
		return http.StatusConflict

	case ErrCodeInvalidCredentials, ErrCodeTokenInvalid:
		return http.StatusUnauthorized

	case ErrCodeAccountDisabled, ErrCodeForbidden, ErrCodeNotParticipant, ErrCodePropertyNotOwned:
		return http.StatusForbidden

	case ErrCodeRateLimited:
		return http.StatusTooManyRequests

	case ErrCodePropertyNotFound, ErrCodeBookingNotFound, ErrCodeTransactionNotFound,
		ErrCodeConversationNotFound, ErrCodeResourceNotFound:
		return http.StatusNotFound

	case ErrCodeInvalidDateRange, ErrCodeDatesUnavailable, ErrCodeCapacityExceeded,
		ErrCodePromoInvalid, ErrCodePromoExpired, ErrCodeBookingNotCancellable,
		ErrCodeInvalidStatusChange, ErrCodeValidationFailed,
		ErrCodeWebhookSignatureInvalid, ErrCodeWebhookPayloadInvalid:
		return http.StatusBadRequest

	case ErrCodePaymentInitFailed, ErrCodePaymentGatewayError, ErrCodePayoutFailed:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP returns the status and JSON body for any error. Unknown errors are
// reported as opaque internal errors so details don't leak to clients.
func ToHTTP(err error) (int, *StandardError) {
	if se := AsStandard(err); se != nil {
		return HTTPStatus(se.Code), se
	}
	internal := New(ErrCodeInternal, "Internal server error", "")
	return http.StatusInternalServerError, internal
}
