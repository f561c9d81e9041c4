package expense

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/category"
	"github.com/frahmantamala/expense-claims/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

// maxAmount is the largest value a numeric(12,2) column holds.
var maxAmount = decimal.RequireFromString("9999999999.99")

// CreateExpenseDTO is the create payload, sent either as JSON or as the text
// fields of a multipart form.
type CreateExpenseDTO struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Amount      decimal.NullDecimal `json:"amount"`
	Date        string              `json:"date" validate:"required"`
	Category    string              `json:"category"`
	Description string              `json:"description" validate:"max=2000"`
	EmployeeID  *int64              `json:"employee_id" validate:"omitempty,gt=0"`
	CreatedByAI bool                `json:"created_by_ai"`
}

// CreateExpenseInput is a validated CreateExpenseDTO.
type CreateExpenseInput struct {
	Title       string
	Amount      decimal.Decimal
	Date        time.Time
	Category    string
	Description string
	EmployeeID  *int64
	CreatedByAI bool
}

func (dto *CreateExpenseDTO) Normalize() {
	dto.Title = strings.TrimSpace(dto.Title)
	dto.Description = strings.TrimSpace(dto.Description)
	dto.Date = strings.TrimSpace(dto.Date)
	dto.Category = category.Normalize(dto.Category)
}

// Parse normalizes and validates the payload.
func (dto CreateExpenseDTO) Parse() (*CreateExpenseInput, error) {
	dto.Normalize()
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	var fieldErrs []internal.ValidationError
	switch {
	case !dto.Amount.Valid:
		fieldErrs = append(fieldErrs, internal.ValidationError{
			Field: "amount", Message: "amount is required", Code: string(internal.ErrCodeInvalidAmount)})
	case dto.Amount.Decimal.IsNegative():
		fieldErrs = append(fieldErrs, internal.ValidationError{
			Field: "amount", Message: "amount must be zero or positive", Code: string(internal.ErrCodeInvalidAmount)})
	case dto.Amount.Decimal.GreaterThan(maxAmount):
		fieldErrs = append(fieldErrs, internal.ValidationError{
			Field: "amount", Message: "amount is too large", Code: string(internal.ErrCodeInvalidAmount)})
	}

	date, err := ParseDate(dto.Date)
	if err != nil {
		fieldErrs = append(fieldErrs, internal.ValidationError{
			Field: "date", Message: "date must be YYYY-MM-DD or RFC3339", Code: string(internal.ErrCodeInvalidDate)})
	}

	if len(fieldErrs) > 0 {
		return nil, internal.NewValidationFieldErrors(fieldErrs...)
	}

	return &CreateExpenseInput{
		Title:       dto.Title,
		Amount:      dto.Amount.Decimal.Round(2),
		Date:        date,
		Category:    dto.Category,
		Description: dto.Description,
		EmployeeID:  dto.EmployeeID,
		CreatedByAI: dto.CreatedByAI,
	}, nil
}

// ParseDate accepts a calendar date or a full RFC3339 timestamp and keeps the
// calendar day in UTC.
func ParseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// CreateExpenseDTOFromForm reads the text fields of a multipart create request.
func CreateExpenseDTOFromForm(form url.Values) (CreateExpenseDTO, error) {
	dto := CreateExpenseDTO{
		Title:       form.Get("title"),
		Date:        form.Get("date"),
		Category:    form.Get("category"),
		Description: form.Get("description"),
	}

	if raw := strings.TrimSpace(form.Get("amount")); raw != "" {
		amount, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
		if err != nil {
			return dto, internal.NewValidationFieldError("amount", "amount must be a number", internal.ErrCodeInvalidAmount)
		}
		dto.Amount = decimal.NewNullDecimal(amount)
	}

	if raw := strings.TrimSpace(form.Get("employee_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return dto, internal.NewValidationFieldError("employee_id", "employee_id must be an integer", internal.ErrCodeValidationFailed)
		}
		dto.EmployeeID = &id
	}

	if raw := form.Get("created_by_ai"); raw != "" {
		flag, err := strconv.ParseBool(raw)
		if err != nil {
			return dto, internal.NewValidationFieldError("created_by_ai", "created_by_ai must be a boolean", internal.ErrCodeValidationFailed)
		}
		dto.CreatedByAI = flag
	}
	return dto, nil
}

type RejectExpenseDTO struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (dto *RejectExpenseDTO) Normalize() {
	dto.Reason = strings.TrimSpace(dto.Reason)
}

type DeleteExpenseResponse struct {
	OK bool  `json:"ok"`
	ID int64 `json:"id"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
	Count    int        `json:"count"`
}
