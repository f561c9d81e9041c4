package company

import (
	"time"

	companyDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/company"
	userDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
)

type Company struct {
	ID         int64
	Name       string
	CreatedBy  int64
	InviteCode string
	Settings   Settings
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Settings struct {
	AutoApproveSolo bool `json:"auto_approve_solo"`
}

// Member is a user as seen from the company admin screens.
type Member struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Role      coreUser.Role `json:"role"`
	IsActive  bool          `json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
}

func NewCompany(name string, founderID int64, inviteCode string) *Company {
	now := time.Now()
	return &Company{
		Name:       name,
		CreatedBy:  founderID,
		InviteCode: NormalizeInviteCode(inviteCode),
		Settings:   Settings{AutoApproveSolo: true},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func ToDataModel(c *Company) *companyDatamodel.Company {
	return &companyDatamodel.Company{
		ID:              c.ID,
		Name:            c.Name,
		CreatedBy:       c.CreatedBy,
		InviteCode:      c.InviteCode,
		AutoApproveSolo: c.Settings.AutoApproveSolo,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func FromDataModel(c *companyDatamodel.Company) *Company {
	return &Company{
		ID:         c.ID,
		Name:       c.Name,
		CreatedBy:  c.CreatedBy,
		InviteCode: c.InviteCode,
		Settings:   Settings{AutoApproveSolo: c.AutoApproveSolo},
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func MemberFromDataModel(u *userDatamodel.User) *Member {
	return &Member{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      coreUser.Role(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

