package category

import "strings"

const (
	Transport = "transport"
	Meals     = "meals"
	Lodging   = "lodging"
	Other     = "other"
)

type Category struct {
	Name  string
	Label string
	// Aliases are the localized spellings accepted on input.
	Aliases []string
}

var catalog = []Category{
	{Name: Transport, Label: "Transport", Aliases: []string{"transports", "taxi", "train"}},
	{Name: Meals, Label: "Repas", Aliases: []string{"repas", "meal", "restaurant"}},
	{Name: Lodging, Label: "Hébergement", Aliases: []string{"hébergement", "hebergement", "hotel", "hôtel"}},
	{Name: Other, Label: "Autre", Aliases: []string{"autre", "divers"}},
}

// All returns the fixed category set in display order.
func All() []Category {
	out := make([]Category, len(catalog))
	copy(out, catalog)
	return out
}

func IsValid(name string) bool {
	for _, c := range catalog {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Normalize maps a canonical name or a localized alias to its canonical name.
// Empty and unknown input both become Other.
func Normalize(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return Other
	}
	for _, c := range catalog {
		if c.Name == v {
			return c.Name
		}
		for _, alias := range c.Aliases {
			if alias == v {
				return c.Name
			}
		}
	}
	return Other
}

func (c Category) ToResponse() CategoryResponse {
	return CategoryResponse{
		Name:    c.Name,
		Label:   c.Label,
		Aliases: c.Aliases,
	}
}
