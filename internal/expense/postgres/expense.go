package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	expenseDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/expense"
	userDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/user"
	coreExpense "github.com/frahmantamala/expense-claims/internal/core/expense"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/internal/expense"
	"github.com/frahmantamala/expense-claims/internal/policy"
	"gorm.io/gorm"
)

var errUnscopedList = errors.New("list filter needs an owner or a company")

// ExpenseRepository implements the expense.RepositoryAPI interface using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	row := expense.ToDataModel(e)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	e.ID = row.ID
	e.CreatedAt = row.CreatedAt
	e.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	var row expenseDatamodel.Expense
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, fmt.Errorf("get expense %d: %w", id, err)
	}
	return expense.FromDataModel(&row), nil
}

// List orders by expense date, newest first, then by creation time.
func (r *ExpenseRepository) List(ctx context.Context, filter policy.ListFilter) ([]*expense.Expense, error) {
	if filter.OwnerID == nil && filter.CompanyID == nil {
		return nil, internal.NewInternalError("failed to list expenses", errUnscopedList)
	}

	q := r.db.WithContext(ctx).Model(&expenseDatamodel.Expense{})
	if filter.OwnerID != nil {
		q = q.Where("user_id = ?", *filter.OwnerID)
	}
	if filter.CompanyID != nil {
		q = q.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var rows []expenseDatamodel.Expense
	err := q.Order("expense_date DESC").
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	expenses := make([]*expense.Expense, 0, len(rows))
	for i := range rows {
		expenses = append(expenses, expense.FromDataModel(&rows[i]))
	}
	if err := r.attachOwners(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *ExpenseRepository) attachOwners(ctx context.Context, expenses []*expense.Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	seen := make(map[int64]bool)
	ids := make([]int64, 0)
	for _, e := range expenses {
		if !seen[e.UserID] {
			seen[e.UserID] = true
			ids = append(ids, e.UserID)
		}
	}

	var users []userDatamodel.User
	err := r.db.WithContext(ctx).
		Select("id", "name", "email", "role").
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return fmt.Errorf("load expense owners: %w", err)
	}

	owners := make(map[int64]*expense.Owner, len(users))
	for _, u := range users {
		owners[u.ID] = &expense.Owner{ID: u.ID, Name: u.Name, Email: u.Email, Role: coreUser.Role(u.Role)}
	}
	for _, e := range expenses {
		e.Owner = owners[e.UserID]
	}
	return nil
}

// Transition updates the claim only if it is still pending, so two concurrent
// approvals cannot both succeed.
func (r *ExpenseRepository) Transition(ctx context.Context, id int64, change expense.Transition) (*expense.Expense, error) {
	validatedBy := change.ValidatedBy
	validatedAt := change.ValidatedAt
	result := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND status = ?", id, string(coreExpense.StatusPending)).
		Updates(map[string]interface{}{
			"status":           string(change.To),
			"validated_by":     &validatedBy,
			"validated_at":     &validatedAt,
			"rejection_reason": change.RejectionReason,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("transition expense %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		if err := r.ensureExists(ctx, id); err != nil {
			return nil, err
		}
		return nil, internal.ErrExpenseAlreadyProcessed
	}
	return r.GetByID(ctx, id)
}

func (r *ExpenseRepository) DeletePending(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, string(coreExpense.StatusPending)).
		Delete(&expenseDatamodel.Expense{})
	if result.Error != nil {
		return fmt.Errorf("delete expense %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		if err := r.ensureExists(ctx, id); err != nil {
			return err
		}
		return internal.ErrExpenseNotPending
	}
	return nil
}

func (r *ExpenseRepository) ensureExists(ctx context.Context, id int64) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&expenseDatamodel.Expense{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check expense %d: %w", id, err)
	}
	if count == 0 {
		return internal.ErrExpenseNotFound
	}
	return nil
}
