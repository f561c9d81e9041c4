package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/company"
	"github.com/frahmantamala/expense-claims/internal/core/common/database"
	userDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-claims/internal/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user.FromDataModel(&row), nil
}

func (r *Repository) Create(ctx context.Context, u *user.User) error {
	return insertUser(r.db.WithContext(ctx), u)
}

func (r *Repository) CreateWithCompany(ctx context.Context, founder *user.User, c *company.Company) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertUser(tx, founder); err != nil {
			return err
		}

		c.CreatedBy = founder.ID
		row := company.ToDataModel(c)
		if err := tx.Create(row).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return internal.ErrInviteCodeTaken
			}
			return fmt.Errorf("create company: %w", err)
		}
		c.ID = row.ID

		if err := tx.Model(&userDatamodel.User{}).
			Where("id = ?", founder.ID).
			Update("company_id", c.ID).Error; err != nil {
			return fmt.Errorf("attach founder: %w", err)
		}
		founder.CompanyID = &c.ID
		return nil
	})
}

func (r *Repository) UpdateProfile(ctx context.Context, id int64, name, email *string) error {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if name != nil {
		updates["name"] = *name
	}
	if email != nil {
		updates["email"] = *email
	}

	result := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		if database.IsUniqueViolation(result.Error) {
			return internal.ErrEmailTaken
		}
		return fmt.Errorf("update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func insertUser(db *gorm.DB, u *user.User) error {
	row := user.ToDataModel(u)
	if err := db.Create(row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return internal.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.ID = row.ID
	u.CreatedAt = row.CreatedAt
	u.UpdatedAt = row.UpdatedAt
	return nil
}
