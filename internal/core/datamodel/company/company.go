package company

import "time"

type Company struct {
	ID              int64     `gorm:"primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	CreatedBy       int64     `gorm:"column:created_by;not null;index"`
	InviteCode      string    `gorm:"column:invite_code;uniqueIndex;not null"`
	AutoApproveSolo bool      `gorm:"column:auto_approve_solo;not null;default:true"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Company) TableName() string {
	return "companies"
}
