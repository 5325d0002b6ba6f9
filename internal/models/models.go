package models

// LineItem is one distinct product in a cart.
//
// ID is derived from the product display name, so two products that share a
// name collide into one line item. This is a known limitation.
type LineItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns price * quantity.
func (li LineItem) Subtotal() float64 {
	return li.Price * float64(li.Quantity)
}

// Product is a card in the catalog. Price is the display label, e.g. "$50.00 MXN".
type Product struct {
	Name  string `yaml:"name" json:"name"`
	Price string `yaml:"price" json:"price"`
	Image string `yaml:"image" json:"image"`
}

// AddRequest is the payload the product source sends for an "add to cart" trigger.
type AddRequest struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Image string `json:"image"`
}

// ItemRequest addresses an existing line item by id.
type ItemRequest struct {
	ID string `json:"id"`
}
