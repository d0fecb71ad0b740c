package errcode

import "net/http"

// 业务错误码
const (
	CodeOK                   = 0
	CodeInvalidParams        = 40000
	CodeNotFound             = 40004
	CodeNotReady             = 40009
	CodeConfirmationRequired = 40010
	CodeColorLocked          = 40011
	CodeRateLimited          = 40029
	CodeInternalError        = 50000
)

// CodeToStatus 将业务错误码映射为 HTTP 状态码
func CodeToStatus(code int) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotReady, CodeConfirmationRequired:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	}
	switch {
	case code >= 40000 && code < 50000:
		return http.StatusBadRequest
	case code >= 50000:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// Message 错误码的默认提示文案
func Message(code int) string {
	switch code {
	case CodeOK:
		return "ok"
	case CodeInvalidParams:
		return "invalid params"
	case CodeNotFound:
		return "not found"
	case CodeNotReady:
		return "pack not ready"
	case CodeConfirmationRequired:
		return "confirmation required"
	case CodeColorLocked:
		return "color locked"
	case CodeRateLimited:
		return "too many requests"
	default:
		return "internal error"
	}
}
