package expense

import (
	"time"

	expenseDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/expense"
	coreExpense "github.com/frahmantamala/expense-claims/internal/core/expense"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/internal/policy"
	"github.com/frahmantamala/expense-claims/internal/receipt"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

type Expense struct {
	ID              int64              `json:"id"`
	UserID          int64              `json:"user_id"`
	CompanyID       *int64             `json:"company_id"`
	Title           string             `json:"title"`
	Amount          decimal.Decimal    `json:"amount"`
	Date            time.Time          `json:"date"`
	Category        string             `json:"category"`
	Description     string             `json:"description"`
	Receipt         *Receipt           `json:"receipt"`
	CreatedByAI     bool               `json:"created_by_ai"`
	Status          coreExpense.Status `json:"status"`
	ValidatedBy     *int64             `json:"validated_by"`
	ValidatedAt     *time.Time         `json:"validated_at"`
	RejectionReason string             `json:"rejection_reason"`
	Owner           *Owner             `json:"user,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type Receipt struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	Path         string `json:"-"`
	Size         int64  `json:"size"`
}

// Owner is the claim author as shown on manager listings.
type Owner struct {
	ID    int64         `json:"id"`
	Name  string        `json:"name"`
	Email string        `json:"email"`
	Role  coreUser.Role `json:"role"`
}

// Claim projects the fields the authorization rules look at.
func (e *Expense) Claim() policy.Claim {
	return policy.Claim{OwnerID: e.UserID, CompanyID: e.CompanyID, Status: e.Status}
}

func (e *Expense) IsPending() bool {
	return e.Status == coreExpense.StatusPending
}

// NewExpense builds the row a permitted create persists. Auto-approved plans
// carry their validation stamp so the claim is never observable as pending.
func NewExpense(plan policy.CreatePlan, input *CreateExpenseInput, stored *receipt.Stored, now time.Time) *Expense {
	e := &Expense{
		UserID:      plan.OwnerID,
		CompanyID:   plan.CompanyID,
		Title:       input.Title,
		Amount:      input.Amount,
		Date:        input.Date,
		Category:    input.Category,
		Description: input.Description,
		CreatedByAI: input.CreatedByAI,
		Status:      plan.Status,
		ValidatedBy: plan.ValidatedBy,
		ValidatedAt: plan.ValidatedAt(now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if stored != nil {
		e.Receipt = &Receipt{
			Filename:     stored.Filename,
			OriginalName: stored.OriginalName,
			MimeType:     stored.MimeType,
			Path:         stored.Path,
			Size:         stored.Size,
		}
	}
	return e
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	row := &expenseDatamodel.Expense{
		ID:              e.ID,
		UserID:          e.UserID,
		CompanyID:       e.CompanyID,
		Title:           e.Title,
		Amount:          e.Amount,
		ExpenseDate:     e.Date,
		Category:        e.Category,
		Description:     e.Description,
		CreatedByAI:     e.CreatedByAI,
		Status:          string(e.Status),
		ValidatedBy:     e.ValidatedBy,
		ValidatedAt:     e.ValidatedAt,
		RejectionReason: e.RejectionReason,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if e.Receipt != nil {
		r := *e.Receipt
		row.ReceiptFilename = &r.Filename
		row.ReceiptOriginalName = &r.OriginalName
		row.ReceiptMimeType = &r.MimeType
		row.ReceiptPath = &r.Path
		row.ReceiptSize = &r.Size
	}
	return row
}

func FromDataModel(row *expenseDatamodel.Expense) *Expense {
	e := &Expense{
		ID:              row.ID,
		UserID:          row.UserID,
		CompanyID:       row.CompanyID,
		Title:           row.Title,
		Amount:          row.Amount,
		Date:            row.ExpenseDate,
		Category:        row.Category,
		Description:     row.Description,
		CreatedByAI:     row.CreatedByAI,
		Status:          coreExpense.Status(row.Status),
		ValidatedBy:     row.ValidatedBy,
		ValidatedAt:     row.ValidatedAt,
		RejectionReason: row.RejectionReason,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.ReceiptPath != nil {
		e.Receipt = &Receipt{
			Filename:     deref(row.ReceiptFilename),
			OriginalName: deref(row.ReceiptOriginalName),
			MimeType:     deref(row.ReceiptMimeType),
			Path:         *row.ReceiptPath,
		}
		if row.ReceiptSize != nil {
			e.Receipt.Size = *row.ReceiptSize
		}
	}
	return e
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
