package cart

// EmptyMessage is shown instead of the list when the cart has no items.
const EmptyMessage = "Your cart is empty."

// LineView is the rendered form of one line item.
type LineView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
	Subtotal string `json:"subtotal"`
}

// View is everything the render target shows for a cart.
type View struct {
	Items        []LineView `json:"items"`
	Empty        bool       `json:"empty"`
	EmptyMessage string     `json:"empty_message,omitempty"`
	Total        string     `json:"total"`
	Badge        int        `json:"badge"`
	BadgeVisible bool       `json:"badge_visible"`
}

// Project builds the view of c. It does not modify c.
func Project(c *Cart) View {
	v := View{Items: make([]LineView, 0, len(c.items))}

	var total float64
	for _, item := range c.items {
		v.Items = append(v.Items, LineView{
			ID:       item.ID,
			Name:     item.Name,
			Image:    item.Image,
			Quantity: item.Quantity,
			Subtotal: FormatAmount(item.Subtotal()),
		})
		total += item.Subtotal()
		v.Badge += item.Quantity
	}

	if len(v.Items) == 0 {
		v.Empty = true
		v.EmptyMessage = EmptyMessage
	}
	v.Total = FormatAmount(total)
	v.BadgeVisible = v.Badge > 0
	return v
}
