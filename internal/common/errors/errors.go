// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Text-to-SQL pipeline outcomes. Only the infrastructure codes ever reach
// the workflow engine as errors; the rest are reported as job output.
const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeFeatureDisabled    ErrorCode = "FEATURE_DISABLED"
	ErrCodeFeatureCheckFailed ErrorCode = "FEATURE_CHECK_FAILED"

	ErrCodeGenerationRefused ErrorCode = "GENERATION_REFUSED"
	ErrCodeUnsafeStatement   ErrorCode = "UNSAFE_STATEMENT"
	ErrCodeExecutionFailed   ErrorCode = "EXECUTION_FAILED"

	ErrCodeGenAITimeout     ErrorCode = "GENAI_TIMEOUT"
	ErrCodeGenAIUnavailable ErrorCode = "GENAI_UNAVAILABLE"

	ErrCodeExecutorUnavailable      ErrorCode = "EXECUTOR_UNAVAILABLE"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"

	ErrCodeAuditIndexFailed ErrorCode = "AUDIT_INDEX_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is keeps working through
// the structured wrapper.
func (e *StandardError) Unwrap() error {
	return e.cause
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

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewInvalidInputError creates a non-retryable input validation error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFeatureCheckFailedError wraps a feature store failure. The caller
// still treats the feature as disabled.
func NewFeatureCheckFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFeatureCheckFailed,
		Message:   "Feature flag lookup failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewGenAITimeoutError reports a generation call that exceeded its deadline.
func NewGenAITimeoutError(purpose string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenAITimeout,
		Message:   "Text generation timed out",
		Details:   fmt.Sprintf("purpose: %s, error: %s", purpose, err.Error()),
		Retryable: false,
		Metadata:  map[string]interface{}{"purpose": purpose},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewGenAIUnavailableError reports an unreachable or failing generation backend.
func NewGenAIUnavailableError(purpose string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenAIUnavailable,
		Message:   "Text generation service unavailable",
		Details:   fmt.Sprintf("purpose: %s, error: %s", purpose, err.Error()),
		Retryable: false,
		Metadata:  map[string]interface{}{"purpose": purpose},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewExecutorUnavailableError reports that the query executor could not be reached.
func NewExecutorUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExecutorUnavailable,
		Message:   "Query executor unavailable",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
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
		cause:     err,
	}
}

// NewAuditIndexFailedError reports a security event that could not be persisted.
func NewAuditIndexFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditIndexFailed,
		Message:   "Security event could not be indexed",
		Details:   fmt.Sprintf("index: %s, error: %s", index, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. The
// generation and executor failures collapse into one boundary event.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:             "INVALID_INPUT",
	ErrCodeFeatureDisabled:          "FEATURE_DISABLED",
	ErrCodeFeatureCheckFailed:       "FEATURE_DISABLED",
	ErrCodeGenerationRefused:        "GENERATION_REFUSED",
	ErrCodeUnsafeStatement:          "UNSAFE_STATEMENT",
	ErrCodeExecutionFailed:          "EXECUTION_FAILED",
	ErrCodeGenAITimeout:             "TEXT_TO_SQL_UNAVAILABLE",
	ErrCodeGenAIUnavailable:         "TEXT_TO_SQL_UNAVAILABLE",
	ErrCodeExecutorUnavailable:      "TEXT_TO_SQL_UNAVAILABLE",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeAuditIndexFailed:         "AUDIT_INDEX_FAILED",
}

// GetRetryCount returns the recommended retry count. The question pipeline
// never retries; a repeated question is a new user turn.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed:
		return 3
	case "EXTERNAL_SERVICE_ERROR", "TIMEOUT_ERROR":
		return 1
	default:
		return 0
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
	case strings.Contains(codeStr, "FEATURE"):
		return "ENTITLEMENT"
	case strings.Contains(codeStr, "GENAI") || strings.Contains(codeStr, "GENERATION"):
		return "AI"
	case strings.Contains(codeStr, "UNSAFE") || strings.Contains(codeStr, "AUDIT"):
		return "SECURITY"
	case strings.Contains(codeStr, "EXECUT") || strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
