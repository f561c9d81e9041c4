package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/company"
	"github.com/frahmantamala/expense-claims/internal/core/common/database"
	companyDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/company"
	userDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"gorm.io/gorm"
)

// CompanyRepository implements company.RepositoryAPI using GORM
type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*company.Company, error) {
	var row companyDatamodel.Company
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("get company %d: %w", id, err)
	}
	return company.FromDataModel(&row), nil
}

func (r *CompanyRepository) GetByInviteCode(ctx context.Context, code string) (*company.Company, error) {
	var row companyDatamodel.Company
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("get company by invite code: %w", err)
	}
	return company.FromDataModel(&row), nil
}

func (r *CompanyRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&companyDatamodel.Company{}).
		Where("invite_code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check invite code: %w", err)
	}
	return count > 0, nil
}

func (r *CompanyRepository) UpdateInviteCode(ctx context.Context, companyID int64, code string) error {
	result := r.db.WithContext(ctx).
		Model(&companyDatamodel.Company{}).
		Where("id = ?", companyID).
		Updates(map[string]interface{}{
			"invite_code": code,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		if database.IsUniqueViolation(result.Error) {
			return internal.ErrInviteCodeTaken
		}
		return fmt.Errorf("update invite code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrCompanyNotFound
	}
	return nil
}

// ListMembers orders by role, then newest first.
func (r *CompanyRepository) ListMembers(ctx context.Context, companyID int64) ([]*company.Member, error) {
	var rows []userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("role ASC").
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]*company.Member, 0, len(rows))
	for i := range rows {
		members = append(members, company.MemberFromDataModel(&rows[i]))
	}
	return members, nil
}

func (r *CompanyRepository) GetMemberIdentity(ctx context.Context, userID int64) (*coreUser.Identity, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("get member %d: %w", userID, err)
	}
	return row.Identity(), nil
}

func (r *CompanyRepository) SetMemberActive(ctx context.Context, userID int64, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("set member active: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}
