package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID                  int64           `gorm:"primaryKey"`
	UserID              int64           `gorm:"column:user_id;not null;index"`
	CompanyID           *int64          `gorm:"column:company_id;index"`
	Title               string          `gorm:"column:title;not null"`
	Amount              decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	ExpenseDate         time.Time       `gorm:"column:expense_date;type:date;not null"`
	Category            string          `gorm:"column:category;not null;default:other"`
	Description         string          `gorm:"column:description"`
	ReceiptFilename     *string         `gorm:"column:receipt_filename"`
	ReceiptOriginalName *string         `gorm:"column:receipt_original_name"`
	ReceiptMimeType     *string         `gorm:"column:receipt_mime_type"`
	ReceiptPath         *string         `gorm:"column:receipt_path"`
	ReceiptSize         *int64          `gorm:"column:receipt_size"`
	CreatedByAI         bool            `gorm:"column:created_by_ai;not null;default:false"`
	Status              string          `gorm:"column:status;not null;default:pending;index"`
	ValidatedBy         *int64          `gorm:"column:validated_by"`
	ValidatedAt         *time.Time      `gorm:"column:validated_at"`
	RejectionReason     string          `gorm:"column:rejection_reason;not null;default:''"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Expense) TableName() string {
	return "expenses"
}
