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
	ErrCodeStorageError       ErrorCode = "COMMON_015"
	ErrCodeMessageQueueError  ErrorCode = "COMMON_016"
	ErrCodeNotImplemented     ErrorCode = "COMMON_017"
)

// Aliases used at call sites that predate the module-prefixed names.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")

	CodeDatabaseError     = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeStorageError      = ErrCodeStorageError
	CodeMessageQueueError = ErrCodeMessageQueueError
)

// Extraction Module Error Codes
const (
	ErrCodeUnsupportedProfile ErrorCode = "EXT_001"
	ErrCodeInvalidRule        ErrorCode = "EXT_002"
	ErrCodeDuplicateField     ErrorCode = "EXT_003"
	ErrCodeEmptyDocument      ErrorCode = "EXT_004"
	ErrCodeRecordNotFound     ErrorCode = "EXT_005"
)

// Reference Data Error Codes
const (
	ErrCodeSnapshotUnavailable ErrorCode = "REF_001"
	ErrCodeSnapshotParseFailed ErrorCode = "REF_002"
	ErrCodeSnapshotDownload    ErrorCode = "REF_003"
	ErrCodeInvalidCAS          ErrorCode = "REF_004"
)

// Job Error Codes
const (
	ErrCodeJobInvalid       ErrorCode = "JOB_001"
	ErrCodeDocumentFetch    ErrorCode = "JOB_002"
	ErrCodeResultDelivery   ErrorCode = "JOB_003"
	ErrCodeJobPublishFailed ErrorCode = "JOB_004"
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
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessageQueueError:  http.StatusServiceUnavailable,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeUnsupportedProfile: http.StatusUnprocessableEntity,
	ErrCodeInvalidRule:        http.StatusInternalServerError,
	ErrCodeDuplicateField:     http.StatusInternalServerError,
	ErrCodeEmptyDocument:      http.StatusBadRequest,
	ErrCodeRecordNotFound:     http.StatusNotFound,

	ErrCodeSnapshotUnavailable: http.StatusServiceUnavailable,
	ErrCodeSnapshotParseFailed: http.StatusInternalServerError,
	ErrCodeSnapshotDownload:    http.StatusBadGateway,
	ErrCodeInvalidCAS:          http.StatusBadRequest,

	ErrCodeJobInvalid:       http.StatusBadRequest,
	ErrCodeDocumentFetch:    http.StatusBadGateway,
	ErrCodeResultDelivery:   http.StatusBadGateway,
	ErrCodeJobPublishFailed: http.StatusServiceUnavailable,
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
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessageQueueError:  "message queue error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeUnsupportedProfile: "unsupported document family",
	ErrCodeInvalidRule:        "invalid extraction rule",
	ErrCodeDuplicateField:     "duplicate field in profile",
	ErrCodeEmptyDocument:      "document text is empty",
	ErrCodeRecordNotFound:     "record not found",

	ErrCodeSnapshotUnavailable: "reference snapshot not loaded",
	ErrCodeSnapshotParseFailed: "failed to parse reference export",
	ErrCodeSnapshotDownload:    "failed to download reference export",
	ErrCodeInvalidCAS:          "invalid CAS registry number",

	ErrCodeJobInvalid:       "invalid extraction job",
	ErrCodeDocumentFetch:    "failed to fetch document",
	ErrCodeResultDelivery:   "failed to deliver result",
	ErrCodeJobPublishFailed: "failed to enqueue job",
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

//Personal.AI order the ending
