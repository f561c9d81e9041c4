package user

import (
	"time"

	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
)

type User struct {
	ID           int64     `gorm:"primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	AccountType  string    `gorm:"column:account_type;not null;default:solo"`
	Role         string    `gorm:"column:role;not null;default:employee"`
	CompanyID    *int64    `gorm:"column:company_id;index"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// Identity projects the row onto the membership fields used for authorization.
func (u *User) Identity() *coreUser.Identity {
	return &coreUser.Identity{
		UserID:      u.ID,
		Role:        coreUser.Role(u.Role),
		AccountType: coreUser.AccountType(u.AccountType),
		CompanyID:   u.CompanyID,
		IsActive:    u.IsActive,
	}
}
