package cart

import (
	"encoding/json"

	"github.com/drstein77/cartwidget/internal/models"
)

// Cart is the ordered list of line items of one session.
// Items keep the order they were first added in and ids are unique.
type Cart struct {
	items []models.LineItem
}

func (c *Cart) index(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) add(id, name string, price float64, image string) {
	if i := c.index(id); i >= 0 {
		c.items[i].Quantity++
		return
	}
	c.items = append(c.items, models.LineItem{
		ID:       id,
		Name:     name,
		Price:    price,
		Image:    image,
		Quantity: 1,
	})
}

func (c *Cart) increment(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items[i].Quantity++
	return true
}

func (c *Cart) decrement(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items[i].Quantity--
	if c.items[i].Quantity <= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
	return true
}

func (c *Cart) clear() {
	c.items = nil
}

// Items returns a copy of the line items in cart order.
func (c *Cart) Items() []models.LineItem {
	out := make([]models.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct line items.
func (c *Cart) Len() int {
	return len(c.items)
}

// MarshalJSON writes the persisted layout: a JSON array, never null.
func (c *Cart) MarshalJSON() ([]byte, error) {
	if c.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.items)
}

// decodeCart reads a persisted cart. Malformed data yields an empty cart,
// and entries with a non-positive quantity or a repeated id are dropped.
func decodeCart(data []byte) (Cart, int) {
	var raw []models.LineItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return Cart{}, 0
	}

	var c Cart
	dropped := 0
	for _, item := range raw {
		if item.Quantity <= 0 || c.index(item.ID) >= 0 {
			dropped++
			continue
		}
		c.items = append(c.items, item)
	}
	return c, dropped
}
