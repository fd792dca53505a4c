// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Scoring / configuration errors
const (
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigMissing ErrorCode = "CONFIG_MISSING"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodePackInvalid   ErrorCode = "PACK_INVALID"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeResultPersistFailed      ErrorCode = "RESULT_PERSIST_FAILED"
	ErrCodeSnapshotPersistFailed    ErrorCode = "SNAPSHOT_PERSIST_FAILED"

	ErrCodeEmailSendFailed ErrorCode = "EMAIL_SEND_FAILED"
	ErrCodeSMSSendFailed   ErrorCode = "SMS_SEND_FAILED"
	ErrCodeCRMPushFailed   ErrorCode = "CRM_PUSH_FAILED"
	ErrCodeIndexFailed     ErrorCode = "INDEX_FAILED"
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

// CodeOf extracts the error code from an error chain, or "" when the
// error is not a StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewConfigInvalidError creates a non-retryable structural config error.
// Must abort config refresh, never be coerced on the hot path.
func NewConfigInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Scoring configuration failed structural validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigMissingError creates a retryable missing-config error.
func NewConfigMissingError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigMissing,
		Message:   "Required configuration document is missing",
		Details:   fmt.Sprintf("key: %s", key),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError creates a non-retryable answer-set error. Details must
// name the offending question/option so the caller can build a precise message.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Submitted answer set is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPackInvalidError creates a non-retryable content-pack error.
func NewPackInvalidError(pack, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePackInvalid,
		Message:   fmt.Sprintf("Content pack '%s' failed validation", pack),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResultPersistFailedError creates a retryable result insert error.
func NewResultPersistFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultPersistFailed,
		Message:   "Failed to persist assessment result",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSnapshotPersistFailedError creates a retryable snapshot insert error.
func NewSnapshotPersistFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotPersistFailed,
		Message:   "Failed to persist customization snapshot",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailSendFailedError creates a retryable email delivery error.
func NewEmailSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailSendFailed,
		Message:   "Results email delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSMSSendFailedError creates a retryable SMS delivery error.
func NewSMSSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSMSSendFailed,
		Message:   "Hot-lead SMS delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCRMPushFailedError creates a retryable CRM error.
func NewCRMPushFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCRMPushFailed,
		Message:   "CRM lead registration failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexFailedError creates a retryable analytics indexing error.
func NewIndexFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexFailed,
		Message:   "Analytics indexing failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes (same as internal).
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeConfigInvalid:            "CONFIG_INVALID",
	ErrCodeConfigMissing:            "CONFIG_MISSING",
	ErrCodeInvalidInput:             "INVALID_INPUT",
	ErrCodePackInvalid:              "PACK_INVALID",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeResultPersistFailed:      "RESULT_PERSIST_FAILED",
	ErrCodeSnapshotPersistFailed:    "SNAPSHOT_PERSIST_FAILED",
	ErrCodeEmailSendFailed:          "EMAIL_SEND_FAILED",
	ErrCodeSMSSendFailed:            "SMS_SEND_FAILED",
	ErrCodeCRMPushFailed:            "CRM_PUSH_FAILED",
	ErrCodeIndexFailed:              "INDEX_FAILED",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeResultPersistFailed,
		ErrCodeSnapshotPersistFailed,
		ErrCodeEmailSendFailed,
		ErrCodeSMSSendFailed,
		ErrCodeCRMPushFailed,
		ErrCodeIndexFailed:
		return 3 // Retryable technical errors

	case ErrCodeConfigMissing:
		return 2 // Config refresh may be racing a deploy

	default:
		return 0 // Input/content errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIG") || strings.Contains(codeStr, "PACK"):
		return "CONFIG"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "PERSIST"):
		return "DATABASE"
	case strings.Contains(codeStr, "EMAIL") || strings.Contains(codeStr, "SMS"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "CRM"):
		return "CRM"
	case strings.Contains(codeStr, "INDEX"):
		return "ANALYTICS"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
