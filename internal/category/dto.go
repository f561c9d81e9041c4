package category

// CategoryResponse lists the labels accepted on input besides Name.
type CategoryResponse struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Aliases []string `json:"aliases,omitempty"`
}

type CategoriesResponse struct {
	Categories []CategoryResponse `json:"categories"`
	Default    string             `json:"default"`
}
