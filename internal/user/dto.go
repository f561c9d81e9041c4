package user

import (
	"strings"

	"github.com/frahmantamala/expense-claims/internal/auth"
	"github.com/frahmantamala/expense-claims/internal/company"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
)

type RegisterDTO struct {
	Name        string               `json:"name" validate:"required,max=120"`
	Email       string               `json:"email" validate:"required,email,max=254"`
	Password    string               `json:"password" validate:"required,min=6,max=72"`
	AccountType coreUser.AccountType `json:"account_type" validate:"omitempty,oneof=solo company"`
	CompanyName string               `json:"company_name" validate:"max=120"`
	InviteCode  string               `json:"invite_code"`
}

// Normalize trims the free-text fields and defaults the account type to solo.
func (d *RegisterDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = auth.NormalizeEmail(d.Email)
	d.CompanyName = strings.TrimSpace(d.CompanyName)
	d.InviteCode = company.NormalizeInviteCode(d.InviteCode)
	if d.AccountType == "" {
		d.AccountType = coreUser.AccountSolo
	}
}

type UpdateProfileDTO struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email *string `json:"email" validate:"omitempty,email,max=254"`
}

func (d *UpdateProfileDTO) Normalize() {
	if d.Name != nil {
		name := strings.TrimSpace(*d.Name)
		d.Name = &name
	}
	if d.Email != nil {
		email := auth.NormalizeEmail(*d.Email)
		d.Email = &email
	}
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

type CompanyView struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	InviteCode *string `json:"invite_code"`
}

type RegisterResponse struct {
	auth.AuthTokens
	User    *User        `json:"user"`
	Company *CompanyView `json:"company"`
}
