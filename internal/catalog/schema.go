package catalog

// Item is one product as returned by GET /products
type Item struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Images      []string `json:"images"`
	Category    Category `json:"category"`
}

// Category is the nested category object of an Item
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Page is the outcome of one page request.
// A non-2xx status is not an error: Items is empty and OK reports false.
type Page struct {
	Offset     int
	StatusCode int
	Items      []Item
}

// OK reports whether the source answered with a 2xx status
func (p Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// Empty reports whether the source has no more items at this offset
func (p Page) Empty() bool {
	return len(p.Items) == 0
}
