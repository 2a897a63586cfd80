package apperr

import "net/http"

type Code string

const (
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeInvalidOperation Code = "INVALID_OPERATION"
	CodeConflict         Code = "CONFLICT"
	CodeInternal         Code = "INTERNAL"

	// Real-time transport reasons.
	CodeRateLimited    Code = "RATE_LIMITED"
	CodeDeliveryFailed Code = "DELIVERY_FAILED"
)

// HTTPStatus maps a code to the status used in REST responses.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidOperation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
