package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Error codes
const (
	CodeInternal            = "INTERNAL_ERROR"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
	CodeParse               = "PARSE_ERROR"
	CodeTimeout             = "PIPELINE_TIMEOUT"
	CodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	CodeStore               = "STORE_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeSessionLimit        = "SESSION_LIMIT"
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Details    string
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// As extracts the *AppError carried anywhere in err's chain.
func As(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	var carrier interface{ appError() *AppError }
	if stderrors.As(err, &carrier) {
		return carrier.appError(), true
	}
	return nil, false
}

func (e *AppError) appError() *AppError { return e }

type ValidationError struct {
	*AppError
	Field string
	Value any
}

func NewValidationError(message, field string, value any) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeInvalidRequest,
			StatusCode: http.StatusBadRequest,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type UnsupportedLanguageError struct {
	*AppError
	Language  string
	Supported []string
}

func NewUnsupportedLanguageError(language string, supported []string) *UnsupportedLanguageError {
	list := append([]string(nil), supported...)
	return &UnsupportedLanguageError{
		AppError: &AppError{
			Message:    fmt.Sprintf("unsupported language: %s", language),
			Code:       CodeUnsupportedLanguage,
			StatusCode: http.StatusBadRequest,
			Details:    "supported languages: " + strings.Join(list, ", "),
			Context: map[string]any{
				"language":  language,
				"supported": list,
			},
		},
		Language:  language,
		Supported: list,
	}
}

// ParseError reports a structural failure at a 1-based line and column.
type ParseError struct {
	*AppError
	Line   int
	Column int
}

func NewParseError(message string, line, column int) *ParseError {
	return &ParseError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeParse,
			StatusCode: http.StatusUnprocessableEntity,
			Details:    fmt.Sprintf("line %d, column %d", line, column),
			Context: map[string]any{
				"line":   line,
				"column": column,
			},
		},
		Line:   line,
		Column: column,
	}
}

type TimeoutError struct {
	*AppError
	Stage  string
	Budget time.Duration
}

func NewTimeoutError(stage string, budget time.Duration) *TimeoutError {
	return &TimeoutError{
		AppError: &AppError{
			Message:    "request exceeded its processing budget",
			Code:       CodeTimeout,
			StatusCode: http.StatusGatewayTimeout,
			Details:    fmt.Sprintf("stage %s, budget %s", stage, budget),
			Context: map[string]any{
				"stage":  stage,
				"budget": budget.String(),
			},
		},
		Stage:  stage,
		Budget: budget,
	}
}

type StoreError struct {
	*AppError
	Store     string
	Operation string
}

func NewStoreError(message, store, operation string, cause error) *StoreError {
	return &StoreError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeStore,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"store":     store,
				"operation": operation,
			},
			Cause: cause,
		},
		Store:     store,
		Operation: operation,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Message:    message,
		Code:       CodeInternal,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}
