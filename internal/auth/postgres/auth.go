package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/auth"
	userDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// GetCredentials returns inactive users too, so login can tell them apart
// from a wrong password.
func (r *Repository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return &auth.Credentials{
		Identity:     *row.Identity(),
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
	}, nil
}

func (r *Repository) GetIdentity(ctx context.Context, userID int64) (*coreUser.Identity, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).
		Select("id", "role", "account_type", "company_id", "is_active").
		Where("id = ?", userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("get identity %d: %w", userID, err)
	}
	return row.Identity(), nil
}
