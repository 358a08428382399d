package roster

// Category is one entry of the closed category set. Key is what buttons
// and stored records carry; Title is shown to users.
type Category struct {
	Key   string
	Title string
}

var categories = []Category{
	{Key: "AI", Title: "Artificial Intelligence"},
	{Key: "Software", Title: "Software Development"},
	{Key: "Networks", Title: "Networking"},
}

// Categories returns the category set in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// LookupCategory finds a category by its case-sensitive key.
func LookupCategory(key string) (Category, bool) {
	for _, c := range categories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}
