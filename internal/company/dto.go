package company

import (
	"bytes"
	"encoding/json"

	"github.com/frahmantamala/expense-claims/internal"
)

type CompanyResponse struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	InviteCode *string  `json:"invite_code"`
	Settings   Settings `json:"settings"`
}

type MemberStatusResponse struct {
	OK       bool  `json:"ok"`
	UserID   int64 `json:"user_id"`
	IsActive bool  `json:"is_active"`
}

type InviteCodeResponse struct {
	InviteCode string `json:"invite_code"`
}

// SetMemberActiveDTO keeps is_active raw so that a string or number is
// rejected instead of silently coerced.
type SetMemberActiveDTO struct {
	IsActive json.RawMessage `json:"is_active"`
}

func (d SetMemberActiveDTO) Value() (bool, error) {
	raw := bytes.TrimSpace(d.IsActive)
	switch {
	case bytes.Equal(raw, []byte("true")):
		return true, nil
	case bytes.Equal(raw, []byte("false")):
		return false, nil
	}
	return false, internal.NewValidationFieldError("is_active", "is_active must be a boolean", internal.ErrCodeValidationFailed)
}
