package receipt

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/frahmantamala/expense-claims/internal/category"
	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency = "EUR"
	maxWarnings     = 10
)

// Draft is a pre-filled expense extracted from a receipt. It is never stored;
// the client reviews it and submits it as a regular expense.
type Draft struct {
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	Currency    string          `json:"currency"`
	Confidence  float64         `json:"confidence"`
	Warnings    []string        `json:"warnings"`
}

type Scanner interface {
	Scan(ctx context.Context, upload *Upload, mimeType string) (*Draft, error)
}

func emptyDraft(warnings ...string) *Draft {
	return &Draft{
		Amount:   decimal.Zero,
		Category: category.Other,
		Currency: DefaultCurrency,
		Warnings: append([]string{}, warnings...),
	}
}

// NoopScanner is used when no OCR provider is configured.
type NoopScanner struct{}

func (NoopScanner) Scan(context.Context, *Upload, string) (*Draft, error) {
	return emptyDraft("receipt scanning is not configured, fill the fields manually"), nil
}

var (
	isoDate      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	amountStrip  = regexp.MustCompile(`[^\d.]`)
	errNotJSON   = "model response was not valid JSON, fields are unreliable"
	errBadAmount = "amount could not be read"
	errBadDate   = "date is not in YYYY-MM-DD format"
)

// extractJSON returns the text between the first '{' and the last '}'.
func extractJSON(text string) (map[string]interface{}, bool) {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last <= first {
		return nil, false
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text[first:last+1]), &out); err != nil {
		return nil, false
	}
	return out, true
}

// ParseDraft normalises a model answer into a Draft.
func ParseDraft(text string) *Draft {
	raw, ok := extractJSON(text)
	if !ok {
		return emptyDraft(errNotJSON)
	}

	d := emptyDraft()
	d.Title = truncate(stringField(raw, "title"), 120)
	d.Description = truncate(stringField(raw, "description"), 500)
	d.Merchant = truncate(stringField(raw, "merchant"), 120)
	d.Category = category.Normalize(stringField(raw, "category"))

	if currency := truncate(strings.ToUpper(stringField(raw, "currency")), 10); currency != "" {
		d.Currency = currency
	}

	if list, ok := raw["warnings"].([]interface{}); ok {
		for _, w := range list {
			if s, ok := w.(string); ok && len(d.Warnings) < maxWarnings {
				d.Warnings = append(d.Warnings, s)
			}
		}
	}

	amount, ok := normalizeAmount(raw["amount"])
	if !ok {
		d.addWarning(errBadAmount)
	}
	d.Amount = amount

	date := strings.TrimSpace(stringField(raw, "date"))
	if isoDate.MatchString(date) {
		d.Date = date
	} else if date != "" {
		d.addWarning(errBadDate)
	}

	if c, ok := raw["confidence"].(float64); ok {
		d.Confidence = clamp01(c)
	}
	return d
}

func (d *Draft) addWarning(w string) {
	if len(d.Warnings) < maxWarnings {
		d.Warnings = append(d.Warnings, w)
	}
}

// normalizeAmount accepts numbers and strings such as "12,50 €".
func normalizeAmount(v interface{}) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, true
	case float64:
		if t < 0 {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(t).Round(2), true
	case string:
		cleaned := strings.Join(strings.Fields(t), "")
		if cleaned == "" {
			return decimal.Zero, true
		}
		cleaned = strings.Replace(cleaned, ",", ".", 1)
		cleaned = amountStrip.ReplaceAllString(cleaned, "")
		amount, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero, false
		}
		return amount.Round(2), true
	}
	return decimal.Zero, false
}

func stringField(raw map[string]interface{}, key string) string {
	if s, ok := raw[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
