package utils

import "net/http"

const (
	ErrCodeInvalidInput     = 1001
	ErrCodeNotFound         = 1002
	ErrCodeAlreadyExists    = 1003
	ErrCodeInternalError    = 1004
	ErrCodeValidationFailed = 1005
	ErrCodeUnauthorized     = 1006
	ErrCodeForbidden        = 1007
	ErrCodeConflict         = 1008
	ErrCodeTenantRequired   = 1009
	ErrCodeTenantInactive   = 1010
)

// GetHTTPStatusCode 业务错误码到HTTP状态码的映射
func GetHTTPStatusCode(code int) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeValidationFailed, ErrCodeTenantRequired:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeTenantInactive:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
