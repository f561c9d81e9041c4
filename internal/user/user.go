package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
)

type User struct {
	ID           int64                `json:"id"`
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	PasswordHash string               `json:"-"`
	AccountType  coreUser.AccountType `json:"account_type"`
	Role         coreUser.Role        `json:"role"`
	CompanyID    *int64               `json:"company_id"`
	IsActive     bool                 `json:"is_active"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

func (u *User) Identity() coreUser.Identity {
	return coreUser.Identity{
		UserID:      u.ID,
		Role:        u.Role,
		AccountType: u.AccountType,
		CompanyID:   u.CompanyID,
		IsActive:    u.IsActive,
	}
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		AccountType:  string(u.AccountType),
		Role:         string(u.Role),
		CompanyID:    u.CompanyID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		AccountType:  coreUser.AccountType(u.AccountType),
		Role:         coreUser.Role(u.Role),
		CompanyID:    u.CompanyID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
