package export

import "strings"

type EmailExpensesDTO struct {
	To      string `json:"to" validate:"required,email"`
	Message string `json:"message" validate:"max=2000"`
}

func (d *EmailExpensesDTO) Normalize() {
	d.To = strings.TrimSpace(d.To)
	d.Message = strings.TrimSpace(d.Message)
}

type EmailExpensesResponse struct {
	OK          bool   `json:"ok"`
	Count       int    `json:"count"`
	Total       string `json:"total"`
	Attachments int    `json:"attachments"`
	Truncated   int    `json:"truncated"`
}
