package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeEmptyLevelSet       ErrorCode = "EMPTY_LEVEL_SET"
	ErrCodeEmptyLevel          ErrorCode = "EMPTY_LEVEL"
	ErrCodeDuplicateAuthorizer ErrorCode = "DUPLICATE_AUTHORIZER"
	ErrCodeReasonRequired      ErrorCode = "REJECTION_REASON_REQUIRED"
	ErrCodeInvalidExpenseKind  ErrorCode = "INVALID_EXPENSE_KIND"
	ErrCodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidDescription  ErrorCode = "INVALID_DESCRIPTION"

	ErrCodeExpenseNotFound       ErrorCode = "EXPENSE_NOT_FOUND"
	ErrCodeTreeNotFound          ErrorCode = "AUTHORIZATION_TREE_NOT_FOUND"
	ErrCodePositionNotFound      ErrorCode = "POSITION_NOT_FOUND"
	ErrCodeNoAuthorizationTree   ErrorCode = "NO_AUTHORIZATION_TREE_CONFIGURED"
	ErrCodeNotEligibleAuthorizer ErrorCode = "NOT_AN_ELIGIBLE_AUTHORIZER"
	ErrCodeLevelAlreadyDecided   ErrorCode = "LEVEL_ALREADY_DECIDED"
	ErrCodeInvalidExpenseStatus  ErrorCode = "INVALID_EXPENSE_STATUS"
	ErrCodeUnauthorizedAccess    ErrorCode = "UNAUTHORIZED_ACCESS"

	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// ValidationError carries the offending field or tree level rank so callers
// can point the user at exactly what failed.
type ValidationError struct {
	Field   string `json:"field"`
	Level   int    `json:"level,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewLevelValidationError reports a tree-edit violation at a specific level rank.
func NewLevelValidationError(level int, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: "levels", Level: level, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewConflictError is used for optimistic-concurrency losses: the caller
// should refetch current state, never retry blindly.
func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrExpenseNotFound  = NewNotFoundError("Expense not found", ErrCodeExpenseNotFound)
	ErrTreeNotFound     = NewNotFoundError("Authorization tree not found", ErrCodeTreeNotFound)
	ErrPositionNotFound = NewNotFoundError("Position not found", ErrCodePositionNotFound)

	ErrNoAuthorizationTree   = NewValidationError("no authorization tree configured for this position and expense kind", ErrCodeNoAuthorizationTree)
	ErrNotEligibleAuthorizer = NewForbiddenError("caller is not an eligible authorizer at the current level", ErrCodeNotEligibleAuthorizer)
	ErrLevelAlreadyDecided   = NewConflictError("the level has already been decided; refetch the expense", ErrCodeLevelAlreadyDecided)
	ErrInvalidExpenseStatus  = NewValidationError("invalid expense status for this operation", ErrCodeInvalidExpenseStatus)
	ErrUnauthorizedAccess    = NewForbiddenError("unauthorized access to expense", ErrCodeUnauthorizedAccess)
	ErrReasonRequired        = NewValidationError("a rejection reason is required", ErrCodeReasonRequired)

	ErrInvalidToken = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
