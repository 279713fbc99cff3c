package state

import (
	"fmt"

	"github.com/shopspring/decimal"

	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
)

type CartLine struct {
	Product  catalogx.Product `json:"product"`
	Quantity int              `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds at most one line per product id, in insertion order.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func (c *Cart) index(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) Add(p catalogx.Product) (CartLine, bool) {
	if i := c.index(p.ID); i >= 0 {
		c.Lines[i].Quantity++
		return c.Lines[i], false
	}
	line := CartLine{Product: p, Quantity: 1}
	c.Lines = append(c.Lines, line)
	return line, true
}

func (c *Cart) Line(productID string) (CartLine, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Lines[i], true
	}
	return CartLine{}, false
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Total is computed on demand from each line's product price.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) Snapshot() []CartLine {
	return append([]CartLine(nil), c.Lines...)
}

func (c *Cart) Clear() {
	c.Lines = nil
}

func (c *Cart) Validate() error {
	seen := make(map[string]struct{}, len(c.Lines))
	for _, l := range c.Lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: product %s has quantity %d", ErrInvalidCart, l.Product.ID, l.Quantity)
		}
		if _, dup := seen[l.Product.ID]; dup {
			return fmt.Errorf("%w: duplicate line for product %s", ErrInvalidCart, l.Product.ID)
		}
		seen[l.Product.ID] = struct{}{}
	}
	return nil
}
