// Package export emails a summary of the claims a caller may export.
package export

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/expense-claims/internal/expense"
	"github.com/frahmantamala/expense-claims/internal/mailer"
	"github.com/shopspring/decimal"
)

// MaxAttachments caps the receipt files attached to one export mail.
const MaxAttachments = 10

type Line struct {
	ExpenseID    int64
	Date         string
	Title        string
	Category     string
	Status       string
	Amount       decimal.Decimal
	RunningTotal decimal.Decimal
}

func (l Line) String() string {
	return strings.Join([]string{
		l.Date,
		l.Title,
		l.Category,
		l.Status,
		l.Amount.StringFixed(2),
		l.RunningTotal.StringFixed(2),
	}, " | ")
}

type Summary struct {
	Lines       []Line
	Total       decimal.Decimal
	Attachments []mailer.Attachment
	// Skipped counts receipts left out because of MaxAttachments.
	Skipped int
	// Missing counts receipts whose file could not be read.
	Missing int
}

// Summarize keeps the order of expenses, which the repository returns newest
// date first, and attaches receipts in that same order.
func Summarize(expenses []*expense.Expense) Summary {
	s := Summary{Lines: make([]Line, 0, len(expenses)), Total: decimal.Zero}
	for _, e := range expenses {
		s.Total = s.Total.Add(e.Amount)
		s.Lines = append(s.Lines, Line{
			ExpenseID:    e.ID,
			Date:         e.Date.Format(expense.DateLayout),
			Title:        e.Title,
			Category:     e.Category,
			Status:       string(e.Status),
			Amount:       e.Amount,
			RunningTotal: s.Total,
		})

		if e.Receipt == nil || e.Receipt.Path == "" {
			continue
		}
		if len(s.Attachments) >= MaxAttachments {
			s.Skipped++
			continue
		}
		s.Attachments = append(s.Attachments, mailer.Attachment{
			Filename:    attachmentName(e),
			ContentType: e.Receipt.MimeType,
			Path:        e.Receipt.Path,
		})
	}
	return s
}

func attachmentName(e *expense.Expense) string {
	name := e.Receipt.OriginalName
	if name == "" {
		name = e.Receipt.Filename
	}
	return fmt.Sprintf("%d_%s", e.ID, name)
}

// LoadAttachments reads every attachment through files and drops the ones
// that cannot be read, counting them in Missing.
func (s *Summary) LoadAttachments(files mailer.FileReader) []error {
	var errs []error
	loaded := s.Attachments[:0]
	for _, att := range s.Attachments {
		data, err := files.ReadFile(att.Path)
		if err != nil {
			s.Missing++
			errs = append(errs, fmt.Errorf("read receipt %s: %w", att.Path, err))
			continue
		}
		att.Data = data
		loaded = append(loaded, att)
	}
	s.Attachments = loaded
	return errs
}

// NotAttached is the number of receipts missing from the mail for any reason.
func (s Summary) NotAttached() int {
	return s.Skipped + s.Missing
}

// Text renders the plain text body.
func (s Summary) Text(message string) string {
	var b strings.Builder
	if message = strings.TrimSpace(message); message != "" {
		b.WriteString(message)
		b.WriteString("\n\n")
	}

	if len(s.Lines) == 0 {
		b.WriteString("No expenses matched this export.\n")
		return b.String()
	}

	b.WriteString("date | title | category | status | amount | running total\n")
	for _, l := range s.Lines {
		b.WriteString(l.String())
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%d expense(s), total %s\n", len(s.Lines), s.Total.StringFixed(2))
	if s.Skipped > 0 {
		fmt.Fprintf(&b, "%d receipt(s) not attached (limit %d)\n", s.Skipped, MaxAttachments)
	}
	if s.Missing > 0 {
		fmt.Fprintf(&b, "%d receipt(s) not attached (file unavailable)\n", s.Missing)
	}
	return b.String()
}
