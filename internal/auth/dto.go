package auth

import (
	"strings"

	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims and lowercases the email.
func (d *LoginDTO) Normalize() {
	d.Email = NormalizeEmail(d.Email)
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserView is the public projection of a user returned next to tokens.
type UserView struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name,omitempty"`
	Email       string               `json:"email"`
	Role        coreUser.Role        `json:"role"`
	AccountType coreUser.AccountType `json:"account_type"`
	CompanyID   *int64               `json:"company_id"`
}

type AuthResponse struct {
	AuthTokens
	User UserView `json:"user"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
