package internal

import (
	"encoding/json"
	"errors"
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
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidDate      ErrorCode = "INVALID_DATE"
	ErrCodeInvalidStatus    ErrorCode = "INVALID_STATUS_FILTER"
	ErrCodeInvalidReceipt   ErrorCode = "INVALID_RECEIPT"
	ErrCodeReceiptTooLarge  ErrorCode = "RECEIPT_TOO_LARGE"
	ErrCodeMissingEmployee  ErrorCode = "EMPLOYEE_REQUIRED"
	ErrCodeInvalidInvite    ErrorCode = "INVALID_INVITE_CODE"
	ErrCodeNoCompany        ErrorCode = "NO_COMPANY"

	ErrCodeExpenseNotFound  ErrorCode = "EXPENSE_NOT_FOUND"
	ErrCodeUserNotFound     ErrorCode = "USER_NOT_FOUND"
	ErrCodeCompanyNotFound  ErrorCode = "COMPANY_NOT_FOUND"
	ErrCodeAccessDenied     ErrorCode = "ACCESS_DENIED"
	ErrCodeSelfApproval     ErrorCode = "SELF_APPROVAL_FORBIDDEN"
	ErrCodeManagerRequired  ErrorCode = "MANAGER_REQUIRED"
	ErrCodeAlreadyProcessed ErrorCode = "EXPENSE_ALREADY_PROCESSED"
	ErrCodeNotPending       ErrorCode = "EXPENSE_NOT_PENDING"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeMissingToken       ErrorCode = "UNAUTHENTICATED"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	ErrCodeEmailTaken        ErrorCode = "EMAIL_TAKEN"
	ErrCodeInviteExhausted   ErrorCode = "INVITE_CODE_EXHAUSTED"
	ErrCodeInviteTaken       ErrorCode = "INVITE_CODE_TAKEN"
	ErrCodeRateLimited       ErrorCode = "RATE_LIMITED"
	ErrCodeMailFailed        ErrorCode = "MAIL_DELIVERY_FAILED"
	ErrCodeScanFailed        ErrorCode = "SCAN_FAILED"
	ErrCodeRequestValidation ErrorCode = "REQUEST_SCHEMA_MISMATCH"
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
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			messages := make([]string, len(validationErrors.Errors))
			for i, err := range validationErrors.Errors {
				messages[i] = err.Message
			}
			return strings.Join(messages, "; ")
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy carrying cause, so package-level sentinels stay untouched.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Is matches on Type and Code so copies made by WithCause still compare equal to their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

type ValidationError struct {
	Field   string `json:"field"`
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

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationFieldErrors(ValidationError{Field: field, Message: message, Code: string(code)})
}

func NewValidationFieldErrors(fieldErrors ...ValidationError) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    ValidationErrors{Errors: fieldErrors},
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

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewExternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

var (
	ErrExpenseNotFound         = NewNotFoundError("Expense not found", ErrCodeExpenseNotFound)
	ErrExpenseAlreadyProcessed = NewConflictError("Expense has already been processed", ErrCodeAlreadyProcessed)
	ErrExpenseNotPending       = NewConflictError("Only pending expenses can be deleted", ErrCodeNotPending)
	ErrInvalidStatusFilter     = NewValidationError("status must be one of pending, approved, rejected", ErrCodeInvalidStatus)
	ErrEmployeeRequired        = NewValidationError("employee_id is required when a manager creates an expense", ErrCodeMissingEmployee)

	ErrAccessDenied    = NewForbiddenError("Access denied", ErrCodeAccessDenied)
	ErrManagerRequired = NewForbiddenError("Manager role required", ErrCodeManagerRequired)
	ErrSelfApproval    = NewForbiddenError("You cannot process your own expense", ErrCodeSelfApproval)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrMissingToken       = NewUnauthorizedError("Missing authorization token", ErrCodeMissingToken)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)

	ErrUserNotFound        = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrCompanyNotFound     = NewNotFoundError("Company not found", ErrCodeCompanyNotFound)
	ErrNoCompany           = NewValidationError("Account is not attached to a company", ErrCodeNoCompany)
	ErrInvalidInviteCode   = NewValidationError("Invalid invite code", ErrCodeInvalidInvite)
	ErrEmailTaken          = NewConflictError("Email is already in use", ErrCodeEmailTaken)
	ErrInviteCodeExhausted = NewConflictError("Could not generate a unique invite code", ErrCodeInviteExhausted)
	ErrInviteCodeTaken     = NewConflictError("Invite code already in use", ErrCodeInviteTaken)

	ErrRateLimited        = &AppError{Type: ErrorTypeValidation, Code: ErrCodeRateLimited, Message: "Too many requests", StatusCode: http.StatusTooManyRequests}
	ErrMailDeliveryFailed = NewExternalError("Failed to deliver email", ErrCodeMailFailed)
	ErrScanFailed         = NewExternalError("Receipt scan failed", ErrCodeScanFailed)
)

// AsAppError unwraps err looking for an *AppError.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
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
