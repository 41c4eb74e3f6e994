package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeInvalidState       ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Short aliases used by the factory functions in errors.go.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeUnauthorized = ErrCodeUnauthorized
	CodeForbidden    = ErrCodeForbidden
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Clause Module Error Codes
const (
	ErrCodeClauseNotFound       ErrorCode = "CLS_001"
	ErrCodeClauseInvalidKind    ErrorCode = "CLS_002"
	ErrCodeContractTextEmpty    ErrorCode = "CLS_003"
	ErrCodeClauseAlreadyExists  ErrorCode = "CLS_004"
)

// Deadline Module Error Codes
const (
	ErrCodeDeadlineNotFound      ErrorCode = "DLN_001"
	ErrCodeClauseNoDeadlineTerms ErrorCode = "DLN_002"
	ErrCodeDeadlineTerminal      ErrorCode = "DLN_003"
	ErrCodeDeadlineTypeInvalid   ErrorCode = "DLN_004"
)

// Notice Module Error Codes
const (
	ErrCodeNoticeNotFound          ErrorCode = "NTC_001"
	ErrCodeNoticeNotEditable       ErrorCode = "NTC_002"
	ErrCodeNoticeRecipientMissing  ErrorCode = "NTC_003"
	ErrCodeDeliveryMethodInvalid   ErrorCode = "NTC_004"
	ErrCodeNoticeDeliveryFailed    ErrorCode = "NTC_005"
)

// Scoring Module Error Codes
const (
	ErrCodeScoreNotFound      ErrorCode = "SCR_001"
	ErrCodeHistoryPeriodInvalid ErrorCode = "SCR_002"
)

// Trigger Module Error Codes
const (
	ErrCodeTriggerEventInvalid ErrorCode = "TRG_001"
)

// Holiday Module Error Codes
const (
	ErrCodeHolidayNotFound  ErrorCode = "HOL_001"
	ErrCodeHolidayDuplicate ErrorCode = "HOL_002"
)

// AI Boundary Error Codes
const (
	ErrCodeAIModelNotAvailable   ErrorCode = "AI_001"
	ErrCodeAIGenerationFailed    ErrorCode = "AI_002"
	ErrCodeAIResponseUnparseable ErrorCode = "AI_003"
	ErrCodeAIInputInvalid        ErrorCode = "AI_004"
)

// Alert Module Error Codes
const (
	ErrCodeAlertDeliveryFailed ErrorCode = "ALT_001"
	ErrCodeEmailSendFailed     ErrorCode = "ALT_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeInvalidState:       http.StatusBadRequest,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeClauseNotFound:      http.StatusNotFound,
	ErrCodeClauseInvalidKind:   http.StatusBadRequest,
	ErrCodeContractTextEmpty:   http.StatusBadRequest,
	ErrCodeClauseAlreadyExists: http.StatusConflict,

	ErrCodeDeadlineNotFound:      http.StatusNotFound,
	ErrCodeClauseNoDeadlineTerms: http.StatusBadRequest,
	ErrCodeDeadlineTerminal:      http.StatusBadRequest,
	ErrCodeDeadlineTypeInvalid:   http.StatusBadRequest,

	ErrCodeNoticeNotFound:         http.StatusNotFound,
	ErrCodeNoticeNotEditable:      http.StatusBadRequest,
	ErrCodeNoticeRecipientMissing: http.StatusBadRequest,
	ErrCodeDeliveryMethodInvalid:  http.StatusBadRequest,
	ErrCodeNoticeDeliveryFailed:   http.StatusBadGateway,

	ErrCodeScoreNotFound:        http.StatusNotFound,
	ErrCodeHistoryPeriodInvalid: http.StatusBadRequest,

	ErrCodeTriggerEventInvalid: http.StatusBadRequest,

	ErrCodeHolidayNotFound:  http.StatusNotFound,
	ErrCodeHolidayDuplicate: http.StatusConflict,

	ErrCodeAIModelNotAvailable:   http.StatusServiceUnavailable,
	ErrCodeAIGenerationFailed:    http.StatusBadGateway,
	ErrCodeAIResponseUnparseable: http.StatusBadGateway,
	ErrCodeAIInputInvalid:        http.StatusBadRequest,

	ErrCodeAlertDeliveryFailed: http.StatusInternalServerError,
	ErrCodeEmailSendFailed:     http.StatusBadGateway,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeInvalidState:       "operation not allowed in current status",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeClauseNotFound:      "contract clause not found",
	ErrCodeClauseInvalidKind:   "invalid clause kind",
	ErrCodeContractTextEmpty:   "contract text is empty",
	ErrCodeClauseAlreadyExists: "contract clause already exists",

	ErrCodeDeadlineNotFound:      "compliance deadline not found",
	ErrCodeClauseNoDeadlineTerms: "clause does not define deadline terms",
	ErrCodeDeadlineTerminal:      "deadline is in a terminal status",
	ErrCodeDeadlineTypeInvalid:   "invalid deadline type",

	ErrCodeNoticeNotFound:         "compliance notice not found",
	ErrCodeNoticeNotEditable:      "notice is not in an editable status",
	ErrCodeNoticeRecipientMissing: "notice recipient email is missing",
	ErrCodeDeliveryMethodInvalid:  "invalid delivery method",
	ErrCodeNoticeDeliveryFailed:   "failed to deliver notice",

	ErrCodeScoreNotFound:        "compliance score not found",
	ErrCodeHistoryPeriodInvalid: "invalid score history period",

	ErrCodeTriggerEventInvalid: "invalid trigger event",

	ErrCodeHolidayNotFound:  "project holiday not found",
	ErrCodeHolidayDuplicate: "project holiday already exists for that date",

	ErrCodeAIModelNotAvailable:   "AI model not available",
	ErrCodeAIGenerationFailed:    "AI generation failed",
	ErrCodeAIResponseUnparseable: "AI response could not be parsed",
	ErrCodeAIInputInvalid:        "invalid input for AI model",

	ErrCodeAlertDeliveryFailed: "failed to deliver alert",
	ErrCodeEmailSendFailed:     "failed to send email",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
